package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// csvHeader is written once when the staging file is created.
var csvHeader = []string{"TargetWord", "Definition", "Sentence", "Translation", "Scenario", "Image", "Audio"}

// CSVSink appends approved cards to a staging CSV for later manual import.
// The file survives across runs; the header is written only when the file
// is created.
type CSVSink struct {
	path  string
	comma rune
}

// NewCSVSink creates a staging sink writing to path. comma is the CSV
// separator; 0 means the default comma.
func NewCSVSink(path string, comma rune) *CSVSink {
	if comma == 0 {
		comma = ','
	}
	return &CSVSink{path: path, comma: comma}
}

// Name returns a short description for status messages.
func (s *CSVSink) Name() string {
	return fmt.Sprintf("CSV staging (%s)", s.path)
}

// Put appends one card record, creating the file with a header row first
// if it does not exist yet.
func (s *CSVSink) Put(card Card) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create staging directory: %w", err)
		}
	}

	writeHeader := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		writeHeader = true
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open staging CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = s.comma

	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	record := []string{
		card.Target,
		card.Definition,
		card.Sentence,
		card.Translation,
		card.Scenario,
		ImageField(card.ImageFile),
		AudioField(card.AudioFile),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write card: %w", err)
	}

	writer.Flush()
	return writer.Error()
}
