// Package audio synthesizes example-sentence audio clips with OpenAI TTS.
package audio

import (
	"context"
	"errors"
	"math/rand"
)

// ErrNoCredentials indicates no OpenAI API key was configured. Audio is
// best-effort at approval time, so callers log this once and move on
// instead of retrying.
var ErrNoCredentials = errors.New("OpenAI API key not configured")

// Provider defines the interface for text-to-speech providers
type Provider interface {
	// GenerateAudio generates audio from text and saves it to the specified file
	GenerateAudio(ctx context.Context, text string, outputFile string) error

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Voices lists the OpenAI TTS voices usable as a voice selector.
var Voices = []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer", "verse"}

// Config holds common configuration for audio providers
type Config struct {
	APIKey string
	Model  string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	Voice  string  // one of Voices; empty picks a random voice per clip
	Speed  float64 // 0.25 to 4.0
	Format string  // "mp3" or "wav"
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Model:  "gpt-4o-mini-tts",
		Speed:  1.0,
		Format: "mp3",
	}
}

// NewProvider creates the OpenAI audio provider from configuration
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.APIKey == "" {
		return nil, ErrNoCredentials
	}
	return newOpenAIProvider(config), nil
}

// PickVoice resolves a voice selector: a named voice is used as-is, empty
// selects a random one.
func PickVoice(selector string) string {
	if selector != "" {
		return selector
	}
	return Voices[rand.Intn(len(Voices))]
}
