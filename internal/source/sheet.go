package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetSource reads pending words from an .xlsx inbox. The first row
// is a header; the Word and Status columns are located by name. A row is
// pending until its Status equals "done" (case-insensitive).
type SpreadsheetSource struct {
	path string

	sheet     string
	wordCol   int // 0-based column index
	statusCol int
	hintCol   int // -1 when the sheet has no Hint column
}

// NewSpreadsheetSource creates a spreadsheet-backed source.
func NewSpreadsheetSource(path string) *SpreadsheetSource {
	return &SpreadsheetSource{path: path, wordCol: -1, statusCol: -1, hintCol: -1}
}

// Name returns a short description for status messages.
func (s *SpreadsheetSource) Name() string {
	return filepath.Base(s.path)
}

// Fetch returns up to limit pending rows in original row order.
func (s *SpreadsheetSource) Fetch(limit int) ([]QueueItem, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()

	if err := s.locateColumns(f); err != nil {
		return nil, err
	}

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var items []QueueItem
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if limit > 0 && len(items) >= limit {
			break
		}

		word := strings.TrimSpace(cellAt(row, s.wordCol))
		status := strings.TrimSpace(cellAt(row, s.statusCol))
		if word == "" || strings.EqualFold(status, "done") {
			continue
		}

		text, hint := ParseEntry(word)
		if s.hintCol >= 0 {
			if h := strings.TrimSpace(cellAt(row, s.hintCol)); h != "" {
				hint = h
			}
		}
		items = append(items, QueueItem{Text: text, Hint: hint, Row: i + 1})
	}

	return items, nil
}

// MarkDone writes "Done" into the Status cell of the item's row and saves
// the workbook.
func (s *SpreadsheetSource) MarkDone(item QueueItem) error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	if s.statusCol < 0 {
		if err := s.locateColumns(f); err != nil {
			return err
		}
	}

	cell, err := excelize.CoordinatesToCellName(s.statusCol+1, item.Row)
	if err != nil {
		return fmt.Errorf("status cell for row %d: %w", item.Row, err)
	}
	if err := f.SetCellValue(s.sheet, cell, "Done"); err != nil {
		return fmt.Errorf("update status cell %s: %w", cell, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}
	return nil
}

// locateColumns resolves the sheet name and the Word/Status/Hint header
// columns. Word and Status are required.
func (s *SpreadsheetSource) locateColumns(f *excelize.File) error {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%w: workbook has no sheets", ErrUnavailable)
	}
	s.sheet = sheets[0]

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: sheet %q is empty", ErrUnavailable, s.sheet)
	}

	s.wordCol, s.statusCol, s.hintCol = -1, -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "word":
			s.wordCol = i
		case "status":
			s.statusCol = i
		case "hint":
			s.hintCol = i
		}
	}
	if s.wordCol < 0 || s.statusCol < 0 {
		return fmt.Errorf("%w: sheet %q needs Word and Status header columns", ErrUnavailable, s.sheet)
	}
	return nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
