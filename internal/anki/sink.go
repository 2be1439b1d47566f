// Package anki commits approved cards to their durable destination: the
// AnkiConnect automation API of a running Anki, a staging CSV for manual
// import, or a standalone .apkg package.
package anki

import "fmt"

// Card is the flattened, user-confirmed content of one approved flashcard.
// Append-only: once committed it is never mutated.
type Card struct {
	Target      string // the vocabulary entry itself
	Definition  string
	Sentence    string
	Translation string
	Scenario    string
	ImageFile   string // media filename (basename), empty if none
	AudioFile   string // media filename (basename), empty if none
}

// Sink durably receives approved cards.
type Sink interface {
	// Put commits one approved card.
	Put(card Card) error

	// Name returns a short description for status messages.
	Name() string
}

// ImageField renders the image reference the way Anki embeds media.
func ImageField(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf(`<img src="%s">`, filename)
}

// AudioField renders the audio reference the way Anki embeds sounds.
func AudioField(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", filename)
}
