// Package narration wraps the narration provider's text-to-speech
// endpoint. Audio stitching and normalization are out of scope; the client
// returns raw audio bytes for one chunk at a time.
package narration

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

	"scrivener/internal/config"
)

const defaultHTTPTimeout = 120 * time.Second

// Client calls a TTS synthesis endpoint.
type Client struct {
	cfg        config.Narration
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a narration client from the supplied configuration.
func NewClient(cfg config.Narration, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Narration{
			Enabled:        cfg.Enabled,
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Voice:          strings.TrimSpace(cfg.Voice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Enabled reports whether narration is configured for use.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize returns raw audio samples for one text chunk.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("narration synthesize: text required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("narration synthesize: api key required")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("narration synthesize: base url required")
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = c.cfg.Voice
	}

	encoded, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("narration synthesize: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/synthesize", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("narration synthesize: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narration synthesize: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("narration synthesize: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("narration synthesize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, errors.New("narration synthesize: empty audio payload")
	}
	return body, nil
}
