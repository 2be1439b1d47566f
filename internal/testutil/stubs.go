// Package testutil provides shared test doubles for the generation
// clients, the word source and the card sink.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/tutin/immersion/internal/anki"
	"codeberg.org/tutin/immersion/internal/source"
	"codeberg.org/tutin/immersion/internal/textgen"
)

// TextCall records one text generation request.
type TextCall struct {
	Word        string
	Hint        string
	Instruction string
}

// StubTextGenerator returns a canned CardText or error.
type StubTextGenerator struct {
	mu    sync.Mutex
	Text  *textgen.CardText
	Err   error
	Calls []TextCall
}

func (s *StubTextGenerator) Generate(_ context.Context, word, hint, instruction string) (*textgen.CardText, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, TextCall{Word: word, Hint: hint, Instruction: instruction})
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if s.Text != nil {
		copy := *s.Text
		return &copy, nil
	}
	return &textgen.CardText{
		Definition:  "definition of " + word,
		Sentence:    word + " in a sentence.",
		Translation: "translation of " + word,
		Scenario:    "a scene about " + word,
	}, nil
}

// StubImageGenerator writes an empty PNG file per call, or fails with the
// next queued error.
type StubImageGenerator struct {
	mu    sync.Mutex
	Dir   string  // where generated files are written
	Errs  []error // consumed one per call; nil entries mean success
	Calls int
}

func (s *StubImageGenerator) Generate(_ context.Context, scenario, forbiddenWord, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if len(s.Errs) > 0 {
		err := s.Errs[0]
		s.Errs = s.Errs[1:]
		if err != nil {
			return "", err
		}
	}

	path := filepath.Join(s.Dir, filename)
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// StubSource serves a fixed queue and records MarkDone calls.
type StubSource struct {
	Items []source.QueueItem
	Done  []source.QueueItem
	Err   error
}

func (s *StubSource) Fetch(limit int) ([]source.QueueItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if limit > 0 && len(s.Items) > limit {
		return s.Items[:limit], nil
	}
	return s.Items, nil
}

func (s *StubSource) MarkDone(item source.QueueItem) error {
	s.Done = append(s.Done, item)
	return nil
}

func (s *StubSource) Name() string { return "stub" }

// StubSink records committed cards and optionally fails every Put.
type StubSink struct {
	Cards []anki.Card
	Err   error
}

func (s *StubSink) Put(card anki.Card) error {
	if s.Err != nil {
		return s.Err
	}
	s.Cards = append(s.Cards, card)
	return nil
}

func (s *StubSink) Name() string { return "stub sink" }
