// Package textgen asks Gemini for the text side of a flashcard: definition,
// example sentence, translation and a visual scenario for the illustrator.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

// DefaultModel is fast and free-tier friendly.
const DefaultModel = "gemini-2.0-flash"

var (
	// ErrNoCredentials indicates no Gemini API key was configured.
	ErrNoCredentials = errors.New("google API key not configured")

	// ErrTransport wraps network or API failures.
	ErrTransport = errors.New("text generation request failed")

	// ErrParse indicates the model response was not a usable JSON object.
	ErrParse = errors.New("text generation response not parseable")
)

// CardText is the structured text side of a card.
type CardText struct {
	Definition  string `json:"definition"`
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
	Scenario    string `json:"scenario"`
}

// Config holds the prompt context for a session.
type Config struct {
	APIKey         string
	Model          string // defaults to DefaultModel
	TargetLanguage string // language of the entries, e.g. "Spanish"
	Proficiency    string // learner level mentioned in the prompt
	SentenceWords  int    // approximate example sentence length
}

// Client generates card text via the Gemini API.
type Client struct {
	config  Config
	client  *genai.Client
	breaker *gobreaker.CircuitBreaker
}

// New creates a text generation client.
func New(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{config: config, client: gc, breaker: cb}, nil
}

// Generate produces card text for one entry. instruction is optional
// reviewer guidance merged into the prompt on regeneration.
func (c *Client) Generate(ctx context.Context, word, hint, instruction string) (*CardText, error) {
	prompt := c.buildPrompt(word, hint, instruction)

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
		if err != nil {
			return nil, err
		}
		return resp.Text(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return Normalize(raw.(string))
}

func (c *Client) buildPrompt(word, hint, instruction string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: Create a %s language flashcard for: %q (Context: %s).\n",
		c.config.TargetLanguage, word, hint)
	fmt.Fprintf(&b, "The learner is at %s level.\n\n", c.config.Proficiency)

	b.WriteString("First identify whether this is a single word, a phrase, or a full sentence.\n")
	b.WriteString("Output a SINGLE JSON object with these keys:\n")
	b.WriteString("- definition: STRICTLY just the definition, or the meaning/intent for a phrase or sentence. No grammar notes, no part-of-speech tags, no long explanations.\n")
	if c.config.SentenceWords > 0 {
		fmt.Fprintf(&b, "- sentence: A natural sentence using it, around %d words. If the input already was a sentence, correct it if needed; otherwise keep it.\n",
			c.config.SentenceWords)
	} else {
		b.WriteString("- sentence: A natural sentence using it. If the input already was a sentence, correct it if needed; otherwise keep it.\n")
	}
	b.WriteString("- translation: English translation of that sentence.\n")
	b.WriteString("- scenario: A short visual description for an artist. Do NOT describe any text, signs, words, or speech bubbles in the scene.\n")

	if instruction != "" {
		fmt.Fprintf(&b, "\nAdditional instructions from the reviewer: %s\n", instruction)
	}

	return b.String()
}
