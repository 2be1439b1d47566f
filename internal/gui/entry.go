package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// FieldEntry extends widget.Entry so Escape drops focus back to the window,
// keeping the approve/regenerate hotkeys reachable while editing.
type FieldEntry struct {
	widget.Entry
	onEscape func()
}

// NewFieldEntry creates a multi-line card field entry
func NewFieldEntry() *FieldEntry {
	entry := &FieldEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapWord
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *FieldEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *FieldEntry) SetOnEscape(f func()) {
	e.onEscape = f
}
