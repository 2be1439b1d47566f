// Package prefetch runs the generation pipeline ahead of human review. A
// fixed pool of workers populates the card store so the reviewer rarely
// waits on the network.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codeberg.org/tutin/immersion/internal"
	"codeberg.org/tutin/immersion/internal/card"
	"codeberg.org/tutin/immersion/internal/imagegen"
	"codeberg.org/tutin/immersion/internal/source"
	"codeberg.org/tutin/immersion/internal/textgen"
)

// DefaultWorkers is the default generation concurrency.
const DefaultWorkers = 3

// TextGenerator produces the text side of a card.
type TextGenerator interface {
	Generate(ctx context.Context, word, hint, instruction string) (*textgen.CardText, error)
}

// ImageGenerator renders a scenario into an image file and returns its path.
type ImageGenerator interface {
	Generate(ctx context.Context, scenario, forbiddenWord, filename string) (string, error)
}

// Scheduler feeds queued words through the text and image steps using a
// fixed-size worker pool. One task per distinct word; tasks never retry
// and never block each other.
type Scheduler struct {
	store *card.Store
	text  TextGenerator
	image ImageGenerator

	jobs    chan string
	wg      sync.WaitGroup
	workers int

	// Status receives advisory progress strings for the status bar.
	// Never used for control decisions. May be nil.
	Status func(msg string)

	mu        sync.Mutex
	submitted map[string]bool
}

// NewScheduler creates a scheduler over the shared card store.
func NewScheduler(store *card.Store, text TextGenerator, image ImageGenerator, workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scheduler{
		store:     store,
		text:      text,
		image:     image,
		jobs:      make(chan string, 256),
		workers:   workers,
		submitted: make(map[string]bool),
	}
}

// Start launches the worker goroutines. Workers drain the job channel
// until it is closed or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case word, ok := <-s.jobs:
					if !ok {
						return
					}
					s.process(ctx, word)
				}
			}
		}()
	}
}

// Enqueue registers queue items in the card store and submits one task per
// distinct word. Duplicate words alias a single cache entry and a single
// task, which is what keeps the one-writer-per-word invariant.
func (s *Scheduler) Enqueue(items []source.QueueItem) {
	for _, item := range items {
		s.store.GetOrCreate(item.Text, item.Hint)

		s.mu.Lock()
		dup := s.submitted[item.Text]
		if !dup {
			s.submitted[item.Text] = true
		}
		s.mu.Unlock()
		if dup {
			continue
		}

		s.jobs <- item.Text
	}
}

// Close stops accepting work and waits for in-flight tasks to finish.
func (s *Scheduler) Close() {
	close(s.jobs)
	s.wg.Wait()
}

// process runs the per-word pipeline: text if missing, then image if
// neither an image nor an image error is recorded. Failures degrade the
// one card and are reported on the status line only.
func (s *Scheduler) process(ctx context.Context, word string) {
	st, ok := s.store.Get(word)
	if !ok {
		return
	}

	if !st.HasText() {
		s.report("Writing text for %q...", word)
		text, err := s.text.Generate(ctx, word, st.Hint, "")
		if err != nil {
			s.report("Text failed for %q: %v", word, err)
		} else {
			s.store.Update(word, card.TextPatch(text.Definition, text.Sentence, text.Translation, text.Scenario))
		}
	}

	st, _ = s.store.Get(word)
	if st.ImagePath != "" || st.ImageError != "" {
		return
	}
	if st.Scenario == "" {
		// Nothing to paint without a scenario; the card stays pending
		// until the reviewer regenerates its text.
		return
	}

	s.report("Painting %q...", word)
	path, err := s.image.Generate(ctx, st.Scenario, word, internal.GenerateMediaName(word)+".png")
	if err != nil {
		s.store.Update(word, card.Patch{ImageError: card.String(ImageErrorMessage(err))})
		s.report("Image failed for %q: %v", word, err)
		return
	}
	s.store.Update(word, card.Patch{ImagePath: card.String(path)})
	s.report("Finished %q", word)
}

func (s *Scheduler) report(format string, args ...interface{}) {
	if s.Status != nil {
		s.Status(fmt.Sprintf(format, args...))
	}
}

// ImageErrorMessage renders an image failure for display, keeping the
// content-filter case recognizably distinct so the reviewer knows to edit
// the scenario instead of just retrying.
func ImageErrorMessage(err error) string {
	if errors.Is(err, imagegen.ErrContentFiltered) {
		return "Content filtered: edit the scenario text, then regenerate the image."
	}
	return fmt.Sprintf("Image generation failed: %v", err)
}
