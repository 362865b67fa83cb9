package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scrivener/internal/config"
	"scrivener/internal/timeline"
)

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func parseDateFlag(value string) (*timeline.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	date, err := timeline.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

var apiClient = &http.Client{Timeout: 10 * time.Second}

// daemonURL builds an HTTP URL for the daemon's API bind address.
func daemonURL(cfg *config.Config, path string) string {
	return "http://" + strings.TrimSpace(cfg.Paths.APIBind) + path
}

// postToDaemon sends a JSON POST to the daemon API. The decoded body and
// status are returned; a connection error means no daemon is running.
func postToDaemon(cfg *config.Config, path string, body any, into any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	resp, err := apiClient.Post(daemonURL(cfg, path), "application/json", bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("reach daemon at %s (is scrivenerd running?): %w", cfg.Paths.APIBind, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			return resp.StatusCode, fmt.Errorf("decode daemon response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// getFromDaemon issues a GET against the daemon API.
func getFromDaemon(cfg *config.Config, path string, into any) (int, error) {
	resp, err := apiClient.Get(daemonURL(cfg, path))
	if err != nil {
		return 0, fmt.Errorf("reach daemon at %s (is scrivenerd running?): %w", cfg.Paths.APIBind, err)
	}
	defer resp.Body.Close()
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			return resp.StatusCode, fmt.Errorf("decode daemon response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
