// Package upstream sends translated chat-completions requests to the
// configured LGC backend and hands back the raw streaming body for the
// framer/decoder/transcoder pipeline to consume.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client POSTs LGC request bodies to a single configured upstream endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// Config holds the settings needed to construct a Client.
type Config struct {
	URL     string
	APIKey  string        // optional, forwarded as "Authorization: Bearer <key>"
	Timeout time.Duration // overall per-request timeout, default 600s
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 600 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
	}
}

// StatusError is returned when the upstream responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Message)
}

// Do POSTs body to the configured upstream URL and returns the response
// body for streaming consumption. The caller must close the returned
// io.ReadCloser. A non-2xx status drains a small prefix of the body into a
// *StatusError rather than returning a body to read.
func (c *Client) Do(ctx context.Context, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	return resp.Body, nil
}
