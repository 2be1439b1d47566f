package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI TTS
type OpenAIProvider struct {
	client *openai.Client
	config *Config
}

func newOpenAIProvider(config *Config) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

// GenerateAudio synthesizes text into outputFile. The response format
// follows the file extension, defaulting to mp3.
func (p *OpenAIProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("no text to synthesize")
	}

	voice := PickVoice(p.config.Voice)

	req := openai.CreateSpeechRequest{
		Model: openai.SpeechModel(p.config.Model),
		Input: text,
		Voice: openai.SpeechVoice(voice),
		Speed: p.config.Speed,
	}

	switch strings.ToLower(filepath.Ext(outputFile)) {
	case ".mp3":
		req.ResponseFormat = openai.SpeechResponseFormatMp3
	case ".wav":
		req.ResponseFormat = openai.SpeechResponseFormatWav
	case ".opus":
		req.ResponseFormat = openai.SpeechResponseFormatOpus
	case ".flac":
		req.ResponseFormat = openai.SpeechResponseFormatFlac
	default:
		req.ResponseFormat = openai.SpeechResponseFormatMp3
		if !strings.HasSuffix(outputFile, ".mp3") {
			outputFile += ".mp3"
		}
	}

	response, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		return fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	dir := filepath.Dir(outputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, response)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("no audio data received from OpenAI")
	}

	return nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the OpenAI API is accessible
func (p *OpenAIProvider) IsAvailable() error {
	if p.config.APIKey == "" {
		return ErrNoCredentials
	}
	return nil
}
