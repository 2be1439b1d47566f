// Package imagegen renders the card illustration with the OpenAI image API
// and downloads the result into the session temp directory.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Mode selects the image backend.
type Mode string

const (
	// ModeFast uses dall-e-2: cheaper, lower fidelity, fine for drafts.
	ModeFast Mode = "fast"

	// ModeQuality uses dall-e-3 at standard quality.
	ModeQuality Mode = "quality"
)

var (
	// ErrNoCredentials indicates no OpenAI API key was configured.
	ErrNoCredentials = errors.New("OpenAI API key not configured")

	// ErrContentFiltered indicates the backend refused the prompt on
	// content-safety grounds. The reviewer has to edit the scenario;
	// retrying the same prompt will not help.
	ErrContentFiltered = errors.New("image prompt rejected by content filter")

	// ErrTransport wraps network, parameter and other API failures.
	ErrTransport = errors.New("image generation request failed")
)

// Config holds image generation settings.
type Config struct {
	APIKey  string
	Mode    Mode   // defaults to ModeQuality
	Size    string // defaults per mode: 512x512 fast, 1024x1024 quality
	TempDir string // where generated files land until approval
}

// Client generates card illustrations.
type Client struct {
	config     Config
	client     *openai.Client
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	lastPrompt string
}

// New creates an image generation client.
func New(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if config.Mode == "" {
		config.Mode = ModeQuality
	}
	if config.Size == "" {
		if config.Mode == ModeFast {
			config.Size = "512x512"
		} else {
			config.Size = "1024x1024"
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dalle",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Content refusals are a prompt problem, not an outage.
			return err == nil || errors.Is(err, ErrContentFiltered)
		},
	})

	return &Client{
		config:     config,
		client:     openai.NewClient(config.APIKey),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		breaker:    cb,
	}, nil
}

// Generate renders one illustration for a scenario and writes it to
// filename inside the temp directory. forbiddenWord is the card's target
// word, which must never be painted into the image. Returns the written
// path.
func (c *Client) Generate(ctx context.Context, scenario, forbiddenWord, filename string) (string, error) {
	prompt := BuildPrompt(scenario, forbiddenWord)
	c.lastPrompt = prompt

	req := openai.ImageRequest{
		Prompt:         prompt,
		Size:           c.config.Size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	switch c.config.Mode {
	case ModeFast:
		req.Model = openai.CreateImageModelDallE2
	default:
		req.Model = openai.CreateImageModelDallE3
		req.Quality = openai.CreateImageQualityStandard
		req.Style = openai.CreateImageStyleNatural
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateImage(ctx, req)
		if err != nil {
			return nil, classifyError(err)
		}
		if len(resp.Data) == 0 || resp.Data[0].URL == "" {
			return nil, fmt.Errorf("%w: empty image response", ErrTransport)
		}
		return resp.Data[0].URL, nil
	})
	if err != nil {
		if errors.Is(err, ErrContentFiltered) {
			return "", err
		}
		if errors.Is(err, ErrTransport) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	path := filepath.Join(c.config.TempDir, filename)
	if err := c.download(ctx, result.(string), path); err != nil {
		return "", err
	}
	return path, nil
}

// LastPrompt returns the most recently submitted image prompt.
func (c *Client) LastPrompt() string {
	return c.lastPrompt
}

// download fetches the generated image URL into path.
func (c *Client) download(ctx context.Context, url, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: image download returned %s", ErrTransport, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return fmt.Errorf("write image file: %w", err)
	}
	return nil
}

// BuildPrompt wraps a scenario in the standing art direction: flat vector
// style and a hard no-text rule, with the target word called out so the
// model does not letter it into the scene.
func BuildPrompt(scenario, forbiddenWord string) string {
	var b strings.Builder
	b.WriteString("A minimal, 2D vector art illustration. Flat colors, white background. ")
	b.WriteString("CRITICAL RULE: The image must be completely text-free. ")
	if forbiddenWord != "" {
		fmt.Fprintf(&b, "Do not include the word '%s'. ", forbiddenWord)
	}
	b.WriteString("Do not include any text, letters, numbers, signs, labels, or speech bubbles of any kind. ")
	fmt.Fprintf(&b, "SCENARIO: %s", scenario)
	return b.String()
}

// classifyError maps an OpenAI API error onto the package taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "content_policy_violation" {
			return fmt.Errorf("%w: %s", ErrContentFiltered, apiErr.Message)
		}
		msg := strings.ToLower(apiErr.Message)
		if strings.Contains(msg, "content policy") || strings.Contains(msg, "safety system") {
			return fmt.Errorf("%w: %s", ErrContentFiltered, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
