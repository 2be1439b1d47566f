package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/tutin/immersion/internal"
	"codeberg.org/tutin/immersion/internal/anki"
	"codeberg.org/tutin/immersion/internal/audio"
	"codeberg.org/tutin/immersion/internal/card"
	"codeberg.org/tutin/immersion/internal/prefetch"
	"codeberg.org/tutin/immersion/internal/source"
)

// Approval gate errors, surfaced as warnings in the form.
var (
	ErrNoImage     = errors.New("no image yet, wait for generation or regenerate")
	ErrImageError  = errors.New("image error unresolved, edit the scenario and regenerate")
	ErrSessionDone = errors.New("no card in focus")
)

// Fields are the reviewer-editable text values read from the form at
// commit time. Edits always win over generator output.
type Fields struct {
	Definition  string
	Sentence    string
	Translation string
	Scenario    string
}

// Session is the sequential cursor over one review queue. Methods are
// safe to call from the event loop and from short-lived action
// goroutines at the same time: the internal lock guards only cursor and
// display state and is never held across a generation or sink call, so
// a slow API call can not stall a concurrent Tick.
type Session struct {
	store *card.Store
	queue []source.QueueItem
	src   source.Source
	sink  anki.Sink
	text  prefetch.TextGenerator
	image prefetch.ImageGenerator

	// Audio is best-effort at approval time; nil disables it.
	Audio    audio.Provider
	AudioExt string

	MediaDir string

	// Status receives advisory progress strings. May be nil.
	Status func(msg string)

	mu        sync.Mutex
	index     int
	displayed Displayed
	approved  map[string]bool
}

// NewSession creates a review session over an already enqueued queue.
func NewSession(store *card.Store, queue []source.QueueItem, src source.Source, sink anki.Sink, text prefetch.TextGenerator, image prefetch.ImageGenerator, mediaDir string) *Session {
	return &Session{
		store:    store,
		queue:    queue,
		src:      src,
		sink:     sink,
		text:     text,
		image:    image,
		AudioExt: "mp3",
		MediaDir: mediaDir,
		approved: make(map[string]bool),
	}
}

// Index returns the zero-based cursor position.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Len returns the queue length.
func (s *Session) Len() int {
	return len(s.queue)
}

// Complete reports whether every queued card has been reviewed.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked()
}

func (s *Session) completeLocked() bool {
	return s.index >= len(s.queue)
}

// Current returns the focused queue item.
func (s *Session) Current() (source.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (source.QueueItem, bool) {
	if s.completeLocked() {
		return source.QueueItem{}, false
	}
	return s.queue[s.index], true
}

// Displayed returns what the form is currently showing.
func (s *Session) Displayed() Displayed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// Tick reconciles the focused card's cache entry into the displayed state
// and reports what changed. Idempotent between cache writes.
func (s *Session) Tick() (Displayed, Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.currentLocked()
	if !ok {
		return s.displayed, Changes{}
	}

	st, ok := s.store.Get(item.Text)
	if !ok {
		return s.displayed, Changes{}
	}

	force := s.store.ConsumeForceTextUpdate(item.Text)
	next, ch := Reconcile(s.displayed, st, force)
	s.displayed = next
	return next, ch
}

// RegenerateText re-runs the text step with an optional reviewer
// instruction and arms the force flag so the next tick overwrites the
// visible fields. The generation call runs without the session lock.
func (s *Session) RegenerateText(ctx context.Context, instruction string) error {
	item, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}

	s.report("Rewriting text for %q...", item.Text)
	text, err := s.text.Generate(ctx, item.Text, item.Hint, instruction)
	if err != nil {
		s.report("Text regeneration failed: %v", err)
		return err
	}

	p := card.TextPatch(text.Definition, text.Sentence, text.Translation, text.Scenario)
	p.ForceTextUpdate = true
	s.store.Update(item.Text, p)
	return nil
}

// RegenerateImage re-runs the image step from the given (possibly edited)
// scenario text. The previous temp image is deleted first and any prior
// error is cleared, so the card shows the generating placeholder while
// the call is in flight. This is the only path back to approvable for a
// card with an image error.
func (s *Session) RegenerateImage(ctx context.Context, scenario string) error {
	item, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}

	st, _ := s.store.Get(item.Text)
	if st.ImagePath != "" {
		os.Remove(st.ImagePath)
	}
	s.store.Update(item.Text, card.Patch{ImagePath: card.String("")})

	s.report("Repainting %q...", item.Text)
	path, err := s.image.Generate(ctx, scenario, item.Text, internal.GenerateMediaName(item.Text)+".png")
	if err != nil {
		s.store.Update(item.Text, card.Patch{ImageError: card.String(prefetch.ImageErrorMessage(err))})
		return err
	}

	s.store.Update(item.Text, card.Patch{ImagePath: card.String(path), Scenario: card.String(scenario)})
	return nil
}

// Approve commits the focused card with the reviewer's field values:
// best-effort audio, media relocation, one sink row, every matching
// source row marked done, cursor advanced. Refused while the card has no
// image or an unresolved image error. A sink failure leaves the card in
// a retryable state: the cache keeps the image's real location and the
// source rows stay not-done.
func (s *Session) Approve(ctx context.Context, fields Fields) error {
	item, ok := s.Current()
	if !ok {
		return ErrSessionDone
	}

	st, _ := s.store.Get(item.Text)
	if st.ImageError != "" {
		return ErrImageError
	}
	if st.ImagePath == "" {
		return ErrNoImage
	}

	if err := os.MkdirAll(s.MediaDir, 0755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}

	audioName := s.synthesizeAudio(ctx, item.Text, fields.Sentence)

	imageName := filepath.Base(st.ImagePath)
	movedPath := filepath.Join(s.MediaDir, imageName)
	if err := moveFile(st.ImagePath, movedPath); err != nil {
		return fmt.Errorf("failed to move image into media directory: %w", err)
	}
	// Keep the cache pointing at the file's real location so a retry
	// after a sink failure finds it.
	s.store.Update(item.Text, card.Patch{ImagePath: card.String(movedPath)})

	err := s.sink.Put(anki.Card{
		Target:      item.Text,
		Definition:  fields.Definition,
		Sentence:    fields.Sentence,
		Translation: fields.Translation,
		Scenario:    fields.Scenario,
		ImageFile:   imageName,
		AudioFile:   audioName,
	})
	if err != nil {
		// The rows stay not-done at the source so a future run retries
		// them; the clip for the uncommitted card is discarded.
		if audioName != "" {
			os.Remove(filepath.Join(s.MediaDir, audioName))
		}
		s.report("Sink write failed for %q: %v", item.Text, err)
		return err
	}

	// Duplicate queue entries alias one card; committing it once
	// resolves every row that produced it.
	for _, dup := range s.queue {
		if dup.Text != item.Text {
			continue
		}
		if err := s.src.MarkDone(dup); err != nil {
			s.report("Could not mark %q done at the source: %v", item.Text, err)
		}
	}

	s.mu.Lock()
	s.approved[item.Text] = true
	if cur, ok := s.currentLocked(); ok && cur.Text == item.Text {
		s.advanceLocked()
	}
	index := s.index
	s.mu.Unlock()

	s.report("Approved %q (%d/%d)", item.Text, index, len(s.queue))
	return nil
}

// synthesizeAudio renders the sentence to a clip in the media directory.
// Returns the bare filename, or empty when audio is disabled or failed.
func (s *Session) synthesizeAudio(ctx context.Context, word, sentence string) string {
	if s.Audio == nil || sentence == "" {
		return ""
	}

	name := internal.GenerateMediaName(word) + "." + s.AudioExt
	if err := s.Audio.GenerateAudio(ctx, sentence, filepath.Join(s.MediaDir, name)); err != nil {
		s.report("Audio skipped for %q: %v", word, err)
		return ""
	}
	return name
}

// Skip advances past the focused card without committing it. The source
// row stays not-done so a future run picks it up again.
func (s *Session) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeLocked() {
		return
	}
	s.advanceLocked()
}

// advanceLocked moves the cursor forward, passing over queue items whose
// word was already committed through an earlier duplicate.
func (s *Session) advanceLocked() {
	s.index++
	for s.index < len(s.queue) && s.approved[s.queue[s.index].Text] {
		s.index++
	}
	s.displayed = Displayed{}
}

// Exit deletes the temp images of every card that was not approved.
// Committed sink rows and source done marks are untouched.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, word := range s.store.Words() {
		if s.approved[word] {
			continue
		}
		st, ok := s.store.Get(word)
		if !ok || st.ImagePath == "" {
			continue
		}
		os.Remove(st.ImagePath)
	}
}

func (s *Session) report(format string, args ...interface{}) {
	if s.Status != nil {
		s.Status(fmt.Sprintf(format, args...))
	}
}

// moveFile renames src to dst, falling back to copy+delete when the two
// live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return os.Remove(src)
}
