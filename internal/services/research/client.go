// Package research wraps the research provider's neural passage search.
//
// Zero results is a valid, non-error outcome; callers that need passages
// surface services.ErrNoSources themselves. Each search is attempted once;
// recovery belongs to the caller.
package research

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
	"scrivener/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Passage is one retrieved source passage.
type Passage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// Client calls an Exa-style search endpoint.
type Client struct {
	cfg        config.Research
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

// NewClient constructs a research client from the supplied configuration.
func NewClient(cfg config.Research, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Research{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			MaxResults:      cfg.MaxResults,
			MaxPassageChars: cfg.MaxPassageChars,
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type searchRequest struct {
	Query      string         `json:"query"`
	Type       string         `json:"type"`
	NumResults int            `json:"numResults"`
	Contents   map[string]any `json:"contents"`
}

type searchResponse struct {
	Results []Passage `json:"results"`
}

// Search returns up to maxResults passages for the query. An empty result
// slice with a nil error means the provider found nothing.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("research search: query required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("research search: api key required")
	}
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	payload := searchRequest{
		Query:      query,
		Type:       "neural",
		NumResults: maxResults,
		Contents:   map[string]any{"text": true},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("research search: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("research search: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "research", "search", "http error", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "research", "search", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrProvider, "research", "search",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("research search: decode response: %w", err)
	}

	passages := make([]Passage, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		text := strings.TrimSpace(result.Text)
		if text == "" {
			continue
		}
		if c.cfg.MaxPassageChars > 0 {
			runes := []rune(text)
			if len(runes) > c.cfg.MaxPassageChars {
				text = string(runes[:c.cfg.MaxPassageChars])
			}
		}
		passages = append(passages, Passage{
			Title: strings.TrimSpace(result.Title),
			URL:   strings.TrimSpace(result.URL),
			Text:  text,
		})
	}
	return passages, nil
}

// HealthCheck verifies the API key is usable with a one-result query.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Search(ctx, "connectivity check", 1)
	return err
}
