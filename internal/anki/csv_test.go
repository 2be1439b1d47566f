package anki

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func readAllRecords(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	return records
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready_for_anki.csv")
	sink := NewCSVSink(path, 0)

	cards := []Card{
		{Target: "Gato", Definition: "cat", Sentence: "El gato duerme."},
		{Target: "Perro", Definition: "dog", Sentence: "El perro ladra."},
	}
	for _, card := range cards {
		if err := sink.Put(card); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	records := readAllRecords(t, path)
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != "TargetWord" {
		t.Errorf("Expected header row, got %v", records[0])
	}
	if records[1][0] != "Gato" || records[2][0] != "Perro" {
		t.Errorf("Unexpected card rows: %v", records[1:])
	}
}

func TestCSVSinkAppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.csv")

	if err := NewCSVSink(path, 0).Put(Card{Target: "Uno"}); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}
	// A fresh sink on an existing file must append without a second header.
	if err := NewCSVSink(path, 0).Put(Card{Target: "Dos"}); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	records := readAllRecords(t, path)
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}
	for _, record := range records[1:] {
		if record[0] == "TargetWord" {
			t.Error("Header was written more than once")
		}
	}
}

func TestCSVSinkMediaFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.csv")
	sink := NewCSVSink(path, 0)

	err := sink.Put(Card{
		Target:    "Gato",
		ImageFile: "gato_123.png",
		AudioFile: "gato_123.mp3",
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records := readAllRecords(t, path)
	row := records[1]
	if row[5] != `<img src="gato_123.png">` {
		t.Errorf("Unexpected image field: '%s'", row[5])
	}
	if row[6] != "[sound:gato_123.mp3]" {
		t.Errorf("Unexpected audio field: '%s'", row[6])
	}
}

func TestCSVSinkCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "staging.csv")
	sink := NewCSVSink(path, 0)

	if err := sink.Put(Card{Target: "Gato"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Staging file was not created: %v", err)
	}
}

func TestFieldFormatting(t *testing.T) {
	if got := ImageField(""); got != "" {
		t.Errorf("Expected empty image field, got '%s'", got)
	}
	if got := AudioField(""); got != "" {
		t.Errorf("Expected empty audio field, got '%s'", got)
	}
	if got := ImageField("a.png"); got != `<img src="a.png">` {
		t.Errorf("Unexpected image field: '%s'", got)
	}
	if got := AudioField("a.mp3"); got != "[sound:a.mp3]" {
		t.Errorf("Unexpected audio field: '%s'", got)
	}
}
