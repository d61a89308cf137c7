package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/audio/speech"
	defaultModel   = "gpt-4o-mini-tts"
	defaultVoice   = "alloy"
	defaultFormat  = "mp3"

	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// Config carries the speech endpoint settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	Format         string
	TimeoutSeconds int
}

// HTTPDoer executes HTTP requests. The standard *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to an OpenAI-compatible text-to-speech endpoint.
type Client struct {
	cfg     Config
	client  HTTPDoer
	sleeper func(time.Duration)
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPDoer injects the HTTP client used for requests.
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithSleeper overrides the retry delay function.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient builds a speech client from configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = defaultVoice
	}
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = defaultFormat
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	client := &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		sleeper: time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Format reports the audio container the endpoint returns, used to pick
// media filenames.
func (c *Client) Format() string {
	return c.cfg.Format
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders text to audio and returns the raw encoded bytes.
// An empty voice selects the configured default.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("tts: api key not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: empty input text")
	}
	if strings.TrimSpace(voice) == "" {
		voice = c.cfg.Voice
	}

	payload := speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: c.cfg.Format,
	}

	var lastErr error
	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		audio, retryable, err := c.sendOnce(ctx, payload)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !retryable || attempt == defaultMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		c.sleeper(defaultRetryDelay * time.Duration(attempt))
	}
	return nil, lastErr
}

func (c *Client) sendOnce(ctx context.Context, payload speechRequest) ([]byte, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		retryable := errors.As(err, &netErr) && netErr.Timeout()
		return nil, retryable, fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("tts: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, true, errors.New("tts: empty audio response")
	}
	return audio, false, nil
}

// HealthCheck verifies the api key is present without hitting the endpoint.
func (c *Client) HealthCheck(_ context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("tts: api key not configured")
	}
	return nil
}
