package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	protocolVersion    = 6
	defaultHTTPTimeout = 30 * time.Second
)

// ErrDuplicateNote is returned by AddNote when the backend rejects the note,
// which in practice means a duplicate on the model's primary field.
var ErrDuplicateNote = errors.New("anki: note rejected as duplicate")

// HTTPDoer describes the HTTP client used to reach the automation endpoint.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings required to talk to the backend.
type Config struct {
	URL            string
	TimeoutSeconds int
}

// Client is a typed RPC wrapper over the automation endpoint.
type Client struct {
	endpoint string
	client   HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPDoer overrides the default HTTP client (used in tests).
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// NewClient constructs a client for the configured endpoint.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type envelope struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type reply struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke performs one action round trip, decoding the result into out when
// out is non-nil.
func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	body, err := json.Marshal(envelope{Action: action, Version: protocolVersion, Params: params})
	if err != nil {
		return fmt.Errorf("anki %s: encode request: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("anki %s: new request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("anki %s: %w", action, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anki %s: read response: %w", action, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("anki %s: http %d: %s", action, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded reply
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("anki %s: decode response: %w", action, err)
	}
	if decoded.Error != nil && strings.TrimSpace(*decoded.Error) != "" {
		return fmt.Errorf("anki %s: %s", action, strings.TrimSpace(*decoded.Error))
	}
	if out == nil {
		return nil
	}
	if len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("anki %s: decode result: %w", action, err)
	}
	return nil
}
