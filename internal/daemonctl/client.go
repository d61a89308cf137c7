// Package daemonctl provides the HTTP client side of the daemon API, used
// by the CLI to talk to a running serve process.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"deckhand/internal/daemon"
	"deckhand/internal/enrich"
	"deckhand/internal/profiles"
	"deckhand/internal/store"
)

// ErrDaemonNotRunning indicates the daemon API could not be reached.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given bind address. The address may be a bare
// host:port pair or a full http URL.
func New(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Minute},
	}
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.http = httpClient
	return c
}

// Status fetches the daemon status snapshot.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var status daemon.Status
	err := c.call(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Enrich runs the enrichment pipeline on the daemon and returns its summary.
func (c *Client) Enrich(ctx context.Context, words []string, language string) (enrich.Summary, error) {
	payload := map[string]any{"words": words}
	if language != "" {
		payload["language"] = language
	}
	var summary enrich.Summary
	err := c.call(ctx, http.MethodPost, "/api/enrich", payload, &summary)
	return summary, err
}

// Distribute triggers a whole-deck distribution run on the daemon.
func (c *Client) Distribute(ctx context.Context) ([]profiles.Result, error) {
	var reply struct {
		Results []profiles.Result `json:"results"`
	}
	err := c.call(ctx, http.MethodPost, "/api/distribute", map[string]any{}, &reply)
	return reply.Results, err
}

// History fetches the most recent runs recorded by the daemon.
func (c *Client) History(ctx context.Context, limit int) ([]store.Run, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var reply struct {
		Runs []store.Run `json:"runs"`
	}
	err := c.call(ctx, http.MethodGet, path, nil, &reply)
	return reply.Runs, err
}

// Reachable reports whether the daemon answers status requests.
func (c *Client) Reachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := c.Status(probeCtx)
	return err == nil
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if c.baseURL == "" {
		return ErrDaemonNotRunning
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionRefused(err) {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr *net.OpError
	return errors.As(err, &netErr) && netErr.Op == "dial"
}
