// Package review drives the human pass over generated cards: a cursor
// over the session queue, a periodic reconciliation of cache state into
// the form, and the approve/regenerate actions.
package review

import "codeberg.org/tutin/immersion/internal/card"

// Displayed is what the form currently shows for one card. It is compared
// against fresh cache snapshots so the form only repaints on real change.
type Displayed struct {
	Word        string
	Definition  string
	Sentence    string
	Translation string
	Scenario    string
	ImagePath   string
	ImageError  string
}

// Changes flags which parts of the form need a repaint after reconciling.
type Changes struct {
	Text  bool
	Image bool
	Error bool
}

// Any reports whether anything changed at all.
func (c Changes) Any() bool {
	return c.Text || c.Image || c.Error
}

// Reconcile merges a cache snapshot into the displayed state. Text fields
// are overwritten only when the visible definition is empty or force is
// set, so reviewer edits survive ticks. Image and error updates apply only
// when the value actually differs from what is shown; showing one clears
// the other. Pure function, safe to call every tick.
func Reconcile(prev Displayed, st card.State, force bool) (Displayed, Changes) {
	next := prev
	var ch Changes

	next.Word = st.Word

	if st.HasText() && (prev.Definition == "" || force) {
		next.Definition = st.Definition
		next.Sentence = st.Sentence
		next.Translation = st.Translation
		next.Scenario = st.Scenario
		ch.Text = true
	}

	if st.ImagePath != "" {
		if st.ImagePath != prev.ImagePath {
			next.ImagePath = st.ImagePath
			ch.Image = true
		}
		if prev.ImageError != "" {
			next.ImageError = ""
			ch.Error = true
		}
		return next, ch
	}

	if st.ImageError != "" {
		if st.ImageError != prev.ImageError {
			next.ImageError = st.ImageError
			ch.Error = true
		}
		if prev.ImagePath != "" {
			next.ImagePath = ""
			ch.Image = true
		}
		return next, ch
	}

	// Neither image nor error yet: the form shows its generating
	// placeholder. Clear stale values left over from a reset.
	if prev.ImagePath != "" {
		next.ImagePath = ""
		ch.Image = true
	}
	if prev.ImageError != "" {
		next.ImageError = ""
		ch.Error = true
	}
	return next, ch
}
