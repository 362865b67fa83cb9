package narration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrivener/internal/config"
)

func TestSynthesizeReturnsAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/synthesize" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Voice != "narrator-en-1" {
			t.Fatalf("expected default voice, got %q", req.Voice)
		}
		_, _ = w.Write([]byte{0x52, 0x49, 0x46, 0x46})
	}))
	defer server.Close()

	client := NewClient(config.Narration{Enabled: true, APIKey: "k", BaseURL: server.URL, Voice: "narrator-en-1"})
	audio, err := client.Synthesize(context.Background(), "Chapter one.", "")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(audio) != 4 {
		t.Fatalf("unexpected audio length %d", len(audio))
	}
}

func TestSynthesizeValidatesConfig(t *testing.T) {
	client := NewClient(config.Narration{Enabled: true, BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Synthesize(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for missing api key")
	}
	client = NewClient(config.Narration{Enabled: true, APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Synthesize(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for blank text")
	}
}
