package review

import (
	"testing"

	"codeberg.org/tutin/immersion/internal/card"
)

func TestReconcileTextOverwrite(t *testing.T) {
	st := card.State{
		Word:        "gato",
		Definition:  "cat",
		Sentence:    "El gato duerme.",
		Translation: "The cat sleeps.",
		Scenario:    "a sleeping cat",
	}

	tests := []struct {
		name     string
		prev     Displayed
		force    bool
		wantText bool
		wantDef  string
	}{
		{
			name:     "empty form is filled",
			prev:     Displayed{},
			wantText: true,
			wantDef:  "cat",
		},
		{
			name:     "reviewer edits survive",
			prev:     Displayed{Definition: "my own definition"},
			wantText: false,
			wantDef:  "my own definition",
		},
		{
			name:     "force overwrites edits",
			prev:     Displayed{Definition: "my own definition"},
			force:    true,
			wantText: true,
			wantDef:  "cat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ch := Reconcile(tt.prev, st, tt.force)
			if ch.Text != tt.wantText {
				t.Errorf("Text change = %v, want %v", ch.Text, tt.wantText)
			}
			if next.Definition != tt.wantDef {
				t.Errorf("Definition = %q, want %q", next.Definition, tt.wantDef)
			}
		})
	}
}

func TestReconcilePendingTextNoChange(t *testing.T) {
	_, ch := Reconcile(Displayed{}, card.State{Word: "gato"}, false)
	if ch.Any() {
		t.Errorf("Expected no changes for a pending card, got %+v", ch)
	}
}

func TestReconcileImageDedup(t *testing.T) {
	st := card.State{Word: "gato", Definition: "cat", ImagePath: "/tmp/gato.png"}

	next, ch := Reconcile(Displayed{}, st, false)
	if !ch.Image {
		t.Error("Expected image change on first sight")
	}
	if next.ImagePath != "/tmp/gato.png" {
		t.Errorf("ImagePath = %q", next.ImagePath)
	}

	// Same path again: no repaint.
	_, ch = Reconcile(next, st, false)
	if ch.Image {
		t.Error("Repainted an unchanged image")
	}

	st.ImagePath = "/tmp/gato_2.png"
	next, ch = Reconcile(next, st, false)
	if !ch.Image {
		t.Error("Expected image change for a new path")
	}
	if next.ImagePath != "/tmp/gato_2.png" {
		t.Errorf("ImagePath = %q", next.ImagePath)
	}
}

func TestReconcileErrorShownOnce(t *testing.T) {
	st := card.State{Word: "gato", Definition: "cat", ImageError: "content filtered"}

	next, ch := Reconcile(Displayed{Definition: "cat"}, st, false)
	if !ch.Error {
		t.Error("Expected error change on first sight")
	}
	if next.ImageError != "content filtered" {
		t.Errorf("ImageError = %q", next.ImageError)
	}

	// Repeated ticks with the same error must not re-render.
	for i := 0; i < 5; i++ {
		var again Changes
		next, again = Reconcile(next, st, false)
		if again.Any() {
			t.Fatalf("Tick %d re-rendered an unchanged error: %+v", i, again)
		}
	}
}

func TestReconcileImageClearsError(t *testing.T) {
	prev := Displayed{Definition: "cat", ImageError: "content filtered"}
	st := card.State{Word: "gato", Definition: "cat", ImagePath: "/tmp/gato.png"}

	next, ch := Reconcile(prev, st, false)
	if !ch.Image || !ch.Error {
		t.Errorf("Expected image and error changes, got %+v", ch)
	}
	if next.ImageError != "" {
		t.Errorf("Error not cleared: %q", next.ImageError)
	}
	if next.ImagePath != "/tmp/gato.png" {
		t.Errorf("ImagePath = %q", next.ImagePath)
	}
}

func TestReconcileErrorReplacesImage(t *testing.T) {
	prev := Displayed{Definition: "cat", ImagePath: "/tmp/gato.png"}
	st := card.State{Word: "gato", Definition: "cat", ImageError: "transport error"}

	next, ch := Reconcile(prev, st, false)
	if !ch.Image || !ch.Error {
		t.Errorf("Expected image and error changes, got %+v", ch)
	}
	if next.ImagePath != "" {
		t.Errorf("Image not cleared: %q", next.ImagePath)
	}
}

func TestReconcileResetToPlaceholder(t *testing.T) {
	prev := Displayed{Definition: "cat", ImagePath: "/tmp/gato.png"}
	st := card.State{Word: "gato", Definition: "cat"}

	next, ch := Reconcile(prev, st, false)
	if !ch.Image {
		t.Error("Expected image change when the path was cleared")
	}
	if next.ImagePath != "" {
		t.Errorf("ImagePath = %q, want empty", next.ImagePath)
	}
}
