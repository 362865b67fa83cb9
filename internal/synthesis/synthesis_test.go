package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scrivener/internal/config"
	"scrivener/internal/services"
)

type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.response, s.err
}

func TestWriteSceneReturnsProse(t *testing.T) {
	stub := &stubCompleter{response: "The senate chamber was cold that morning."}
	synth := New(stub, nil)

	result := synth.WriteScene(context.Background(), SceneRequest{
		BookTitle:    "The Ides",
		ChapterTitle: "The Senate",
		SceneIndex:   1,
		SceneCount:   4,
		Description:  "Caesar arrives at the senate",
	})
	if result.Placeholder {
		t.Fatalf("unexpected placeholder: %v", result.Err)
	}
	if result.Text != "The senate chamber was cold that morning." {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if !strings.Contains(stub.prompts[0], "Scene 1 of 4") {
		t.Fatalf("prompt missing scene position: %q", stub.prompts[0])
	}
}

func TestWriteScenePlaceholderOnFailure(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream unavailable")}
	synth := New(stub, nil)

	result := synth.WriteScene(context.Background(), SceneRequest{
		SceneIndex:  2,
		SceneCount:  4,
		Description: "The omens",
	})
	if !result.Placeholder {
		t.Fatal("expected placeholder on provider failure")
	}
	if result.Err == nil {
		t.Fatal("placeholder should carry the underlying error")
	}
	if !errors.Is(result.Err, services.ErrProvider) {
		t.Fatalf("failure should be classified as a provider error, got %v", result.Err)
	}
	if !strings.Contains(result.Text, "The omens") {
		t.Fatalf("placeholder should name the scene, got %q", result.Text)
	}
}

func TestWriteScenePlaceholderOnEmptyResponse(t *testing.T) {
	stub := &stubCompleter{response: "   "}
	synth := New(stub, nil)

	result := synth.WriteScene(context.Background(), SceneRequest{Description: "The knives"})
	if !result.Placeholder {
		t.Fatal("blank response should degrade to placeholder")
	}
}

func TestWriteSceneIncludesWindowAndNotes(t *testing.T) {
	stub := &stubCompleter{response: "prose"}
	synth := New(stub, nil)

	synth.WriteScene(context.Background(), SceneRequest{
		Description: "Aftermath",
		Window:      "Earlier, Caesar ignored the soothsayer.",
		Notes:       []string{"The assassination took place on 15 March 44 BC."},
	})
	prompt := stub.prompts[0]
	if !strings.Contains(prompt, "Earlier, Caesar ignored the soothsayer.") {
		t.Fatalf("prompt missing context window: %q", prompt)
	}
	if !strings.Contains(prompt, "15 March 44 BC") {
		t.Fatalf("prompt missing research notes: %q", prompt)
	}
	// The window is context, not material to rewrite.
	if !strings.Contains(prompt, "do not repeat or retell") {
		t.Fatalf("prompt missing repetition guard: %q", prompt)
	}
}

func TestSummarizeErrors(t *testing.T) {
	stub := &stubCompleter{err: errors.New("boom")}
	synth := New(stub, nil)
	if _, err := synth.Summarize(context.Background(), "prose"); err == nil {
		t.Fatal("expected error from failing provider")
	}

	stub = &stubCompleter{response: ""}
	synth = New(stub, nil)
	if _, err := synth.Summarize(context.Background(), "prose"); err == nil {
		t.Fatal("expected error from empty summary")
	}
}

func testWriting(budget, threshold int) config.Writing {
	return config.Writing{ContextBudgetChars: budget, SummaryThresholdChars: threshold}
}

func TestDraftContextWindowBounded(t *testing.T) {
	draft := NewDraft(testWriting(40, 0))
	draft.Append(strings.Repeat("alpha beta ", 30))

	window := draft.ContextWindow()
	if len([]rune(window)) > 40 {
		t.Fatalf("window exceeds budget: %d runes", len([]rune(window)))
	}
	if strings.HasPrefix(window, "lpha") || strings.HasPrefix(window, "eta") {
		t.Fatalf("window starts mid-word: %q", window)
	}
}

func TestDraftShortContentPassesThrough(t *testing.T) {
	draft := NewDraft(testWriting(1000, 0))
	draft.Append("Scene one.")
	draft.Append("Scene two.")

	if got := draft.ContextWindow(); got != "Scene one.\n\nScene two." {
		t.Fatalf("unexpected window %q", got)
	}
}

func TestDraftNeedsSummaryThreshold(t *testing.T) {
	draft := NewDraft(testWriting(100, 50))
	draft.Append("short")
	if draft.NeedsSummary() {
		t.Fatal("below threshold should not need a summary")
	}

	draft.Append(strings.Repeat("x", 60))
	if !draft.NeedsSummary() {
		t.Fatal("past threshold should need a summary")
	}

	draft.SetSummary("the story so far")
	if draft.NeedsSummary() {
		t.Fatal("fresh summary should clear the need")
	}

	draft.Append(strings.Repeat("y", 60))
	if !draft.NeedsSummary() {
		t.Fatal("new scenes past the threshold should need re-summarizing")
	}
}

func TestDraftWindowLeadsWithSummary(t *testing.T) {
	draft := NewDraft(testWriting(20, 10))
	draft.Append("A long opening scene that overruns the threshold.")
	draft.SetSummary("Caesar arrived; omens were ignored.")

	window := draft.ContextWindow()
	if !strings.HasPrefix(window, "Summary of the chapter so far:") {
		t.Fatalf("window should lead with the summary, got %q", window)
	}
	if !strings.Contains(window, "Most recent prose:") {
		t.Fatalf("window should include trailing prose, got %q", window)
	}
}
