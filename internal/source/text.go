package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Noise patterns from raw Kindle/PDF highlight exports. Lines matching any
// of these are dropped before queueing.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Page\s+\d+\s*\|\s*Highlight`),
	regexp.MustCompile(`(?i)^kindle\s*$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^--- PAGE \d+ ---`),
}

// TextSource reads one entry per line from a plain text file.
type TextSource struct {
	path string
}

// NewTextSource creates a text file source.
func NewTextSource(path string) *TextSource {
	return &TextSource{path: path}
}

// Name returns a short description for status messages.
func (s *TextSource) Name() string {
	return filepath.Base(s.path)
}

// Fetch reads up to limit entries, skipping blank and export-noise lines
// and dropping duplicates while preserving first-seen order.
func (s *TextSource) Fetch(limit int) ([]QueueItem, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	seen := make(map[string]bool)
	var items []QueueItem

	for _, line := range strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoise(line) {
			continue
		}
		if len(line) < 2 && !isLetterLine(line) {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true

		text, hint := ParseEntry(line)
		items = append(items, QueueItem{Text: text, Hint: hint})
		if limit > 0 && len(items) >= limit {
			break
		}
	}

	return items, nil
}

// MarkDone is a no-op for text sources; the file is treated as read-only.
func (s *TextSource) MarkDone(QueueItem) error {
	return nil
}

func isNoise(line string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func isLetterLine(line string) bool {
	for _, r := range line {
		if r == ' ' || r == '\t' {
			continue
		}
		if !strings.ContainsRune(".,;:!?-–—'\"()[]{}0123456789", r) {
			return true
		}
	}
	return false
}
