package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"scrivener/internal/config"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": content},
			},
		},
	}
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat != nil {
			t.Fatal("plain completion should not request json response format")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}
		if err := json.NewEncoder(w).Encode(chatResponse("Once upon a time.")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(config.LLM{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Complete(context.Background(), "You are a writer.", "Write one line.")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "Once upon a time." {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestClientCompleteJSONSetsResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ResponseFormat["type"] != jsonResponseType {
			t.Fatalf("expected json response format, got %v", req.ResponseFormat)
		}
		if err := json.NewEncoder(w).Encode(chatResponse(`{"scenes":["a","b"]}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(config.LLM{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.CompleteJSON(context.Background(), "JSON only.", "List scenes.")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	var parsed struct {
		Scenes []string `json:"scenes"`
	}
	if err := DecodeLLMJSON(got, &parsed); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(parsed.Scenes) != 2 {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := json.NewEncoder(w).Encode(chatResponse("recovered")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		config.LLM{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	got, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got != "recovered" || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %q after %d calls", got, calls.Load())
	}
}

func TestClientSingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(
		config.LLM{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error for 503")
	}
	if calls.Load() != 1 {
		t.Fatalf("failed generation should not be retried unless opted in, got %d calls", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(
		config.LLM{APIKey: "bad", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error for 401")
	}
	if calls.Load() != 1 {
		t.Fatalf("401 should not be retried, got %d calls", calls.Load())
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(chatResponse(`{"ok":true}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(config.LLM{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestDecodeLLMJSONShapes(t *testing.T) {
	var obj struct {
		Name string `json:"name"`
	}
	if err := DecodeLLMJSON("```json\n{\"name\":\"x\"}\n```", &obj); err != nil {
		t.Fatalf("fenced object: %v", err)
	}
	if obj.Name != "x" {
		t.Fatalf("unexpected object %+v", obj)
	}

	var list []string
	if err := DecodeLLMJSON("Here you go:\n[\"a\", \"b\"]\nEnjoy!", &list); err != nil {
		t.Fatalf("wrapped list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("unexpected list %v", list)
	}

	if err := DecodeLLMJSON("not json at all", &obj); err == nil {
		t.Fatal("expected error for unparseable payload")
	}
	if err := DecodeLLMJSON("", &obj); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
