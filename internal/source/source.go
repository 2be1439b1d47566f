// Package source normalizes heterogeneous vocabulary input (text files,
// spreadsheets) into queue items for one review session and writes the
// per-row "Done" status back once a card is approved.
package source

import "errors"

// ErrUnavailable indicates the word source could not be opened or read.
// The session treats this as fatal at startup, never mid-run.
var ErrUnavailable = errors.New("word source unavailable")

// HintNone is the sentinel hint for entries without a parenthetical hint.
const HintNone = "None"

// QueueItem is one pending vocabulary entry.
type QueueItem struct {
	Text string
	Hint string

	// Row is the source position handle used by MarkDone. Text sources
	// use the zero value.
	Row int
}

// Source yields pending entries and records approvals.
type Source interface {
	// Fetch returns up to limit pending items in source order.
	Fetch(limit int) ([]QueueItem, error)

	// MarkDone marks the originating row of item as done so a future
	// session will not fetch it again.
	MarkDone(item QueueItem) error

	// Name returns a short description for status messages.
	Name() string
}
