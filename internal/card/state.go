// Package card holds the per-word generation state shared between the
// prefetch workers and the review form. The store is the only structure
// touched from more than one goroutine; the scheduler guarantees at most
// one writer per word, the store's lock only keeps the map itself safe.
package card

// Status describes how far a card's generation has progressed.
type Status int

const (
	StatusPending Status = iota
	StatusTextReady
	StatusImageReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusTextReady:
		return "TextReady"
	case StatusImageReady:
		return "ImageReady"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// State is the accumulated generation state of one word. Values handed out
// by the store are copies; mutation goes through Store.Update.
type State struct {
	Word string
	Hint string

	// Text fields, present once the text step succeeded.
	Definition  string
	Sentence    string
	Translation string
	Scenario    string

	// ImagePath and ImageError are mutually exclusive: a successful
	// generation clears the error, a failed one clears the path.
	ImagePath  string
	ImageError string

	// ForceTextUpdate is a one-shot flag set by text regeneration and
	// consumed by the next reconciliation read, so the form overwrites
	// fields that are already filled in.
	ForceTextUpdate bool
}

// Status derives the card's lifecycle phase from its fields.
func (s State) Status() Status {
	switch {
	case s.ImageError != "":
		return StatusError
	case s.ImagePath != "":
		return StatusImageReady
	case s.Definition != "":
		return StatusTextReady
	default:
		return StatusPending
	}
}

// HasText reports whether the text generation step has completed.
func (s State) HasText() bool {
	return s.Definition != ""
}

// Patch is a partial update merged into a State. Nil fields are left
// untouched; merging the same patch twice is a no-op after the first.
type Patch struct {
	Definition  *string
	Sentence    *string
	Translation *string
	Scenario    *string

	// ImagePath clears any previous ImageError; ImageError clears any
	// previous ImagePath. Setting both in one patch resolves to the error.
	ImagePath  *string
	ImageError *string

	// ForceTextUpdate sets the one-shot flag; it is never cleared by a
	// patch, only consumed via Store.ConsumeForceTextUpdate.
	ForceTextUpdate bool
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// TextPatch builds a patch carrying all four text fields.
func TextPatch(definition, sentence, translation, scenario string) Patch {
	return Patch{
		Definition:  String(definition),
		Sentence:    String(sentence),
		Translation: String(translation),
		Scenario:    String(scenario),
	}
}

func (s *State) apply(p Patch) {
	if p.Definition != nil {
		s.Definition = *p.Definition
	}
	if p.Sentence != nil {
		s.Sentence = *p.Sentence
	}
	if p.Translation != nil {
		s.Translation = *p.Translation
	}
	if p.Scenario != nil {
		s.Scenario = *p.Scenario
	}
	if p.ImagePath != nil {
		s.ImagePath = *p.ImagePath
		s.ImageError = ""
	}
	if p.ImageError != nil {
		s.ImageError = *p.ImageError
		s.ImagePath = ""
	}
	if p.ForceTextUpdate {
		s.ForceTextUpdate = true
	}
}
