// Package processor runs the pipeline without the review form: generate
// everything, auto-commit the cards that came out complete, skip the
// rest. Skipped rows stay not-done at the source for a later run.
package processor

import (
	"context"
	"fmt"

	"codeberg.org/tutin/immersion/internal/anki"
	"codeberg.org/tutin/immersion/internal/audio"
	"codeberg.org/tutin/immersion/internal/card"
	"codeberg.org/tutin/immersion/internal/prefetch"
	"codeberg.org/tutin/immersion/internal/review"
	"codeberg.org/tutin/immersion/internal/source"
)

// Processor drives one headless run.
type Processor struct {
	src   source.Source
	sink  anki.Sink
	text  prefetch.TextGenerator
	image prefetch.ImageGenerator

	// Audio is optional; nil skips the audio step.
	Audio    audio.Provider
	AudioExt string

	MediaDir   string
	BatchLimit int
	Workers    int
}

// New creates a headless processor.
func New(src source.Source, sink anki.Sink, text prefetch.TextGenerator, image prefetch.ImageGenerator, mediaDir string) *Processor {
	return &Processor{
		src:      src,
		sink:     sink,
		text:     text,
		image:    image,
		AudioExt: "mp3",
		MediaDir: mediaDir,
		Workers:  prefetch.DefaultWorkers,
	}
}

// Run fetches the pending queue, generates every card and commits the
// complete ones. Returns an error only for setup failures; per-card
// failures are reported and skipped.
func (p *Processor) Run(ctx context.Context) error {
	items, err := p.src.Fetch(p.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to load the word queue: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("Nothing to do: no pending entries.")
		return nil
	}

	fmt.Printf("Processing %d entries from %s with %d workers\n", len(items), p.src.Name(), p.Workers)

	store := card.NewStore()
	scheduler := prefetch.NewScheduler(store, p.text, p.image, p.Workers)
	scheduler.Status = func(msg string) {
		fmt.Println(msg)
	}
	scheduler.Start(ctx)
	scheduler.Enqueue(items)
	scheduler.Close()

	session := review.NewSession(store, items, p.src, p.sink, p.text, p.image, p.MediaDir)
	session.Audio = p.Audio
	session.AudioExt = p.AudioExt

	committed := 0
	skipped := 0
	for !session.Complete() {
		item, _ := session.Current()
		session.Tick()
		d := session.Displayed()

		err := session.Approve(ctx, review.Fields{
			Definition:  d.Definition,
			Sentence:    d.Sentence,
			Translation: d.Translation,
			Scenario:    d.Scenario,
		})
		if err != nil {
			fmt.Printf("Skipping %q: %v\n", item.Text, err)
			session.Skip()
			skipped++
			continue
		}
		committed++
	}

	session.Exit()

	fmt.Printf("\nDone: %d committed, %d skipped\n", committed, skipped)
	return nil
}
