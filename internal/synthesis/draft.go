package synthesis

import (
	"strings"

	"scrivener/internal/config"
)

// Draft accumulates a chapter's prose scene by scene and produces the
// bounded context window the next scene is written against. Feeding the
// model the whole chapter would blow the prompt budget on long chapters,
// so the window is a rolling summary of the early scenes plus a trailing
// slice of the most recent prose.
type Draft struct {
	budget           int
	summaryThreshold int
	scenes           []string
	summary          string
	summarizedUpTo   int
}

// NewDraft builds an empty draft bounded by the writing configuration.
func NewDraft(writing config.Writing) *Draft {
	return &Draft{
		budget:           writing.ContextBudgetChars,
		summaryThreshold: writing.SummaryThresholdChars,
	}
}

// Append records a finished scene.
func (d *Draft) Append(text string) {
	d.scenes = append(d.scenes, strings.TrimSpace(text))
}

// SceneCount reports how many scenes have been written so far.
func (d *Draft) SceneCount() int {
	return len(d.scenes)
}

// Content joins the written scenes into the chapter text persisted at
// each checkpoint.
func (d *Draft) Content() string {
	return strings.Join(d.scenes, "\n\n")
}

// NeedsSummary reports whether the accumulated prose has outgrown the
// summary threshold since the last summarization.
func (d *Draft) NeedsSummary() bool {
	if d.summaryThreshold <= 0 {
		return false
	}
	return len(d.Content()) > d.summaryThreshold && d.summarizedUpTo < len(d.scenes)
}

// SetSummary installs a fresh rolling summary covering every scene
// written so far.
func (d *Draft) SetSummary(summary string) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	d.summary = summary
	d.summarizedUpTo = len(d.scenes)
}

// ContextWindow renders what the next scene's prompt gets to see: the
// rolling summary, if one exists, followed by at most the configured
// budget of trailing prose.
func (d *Draft) ContextWindow() string {
	content := d.Content()
	tail := trailingRunes(content, d.budget)

	var sb strings.Builder
	if d.summary != "" {
		sb.WriteString("Summary of the chapter so far:\n")
		sb.WriteString(d.summary)
		if tail != "" {
			sb.WriteString("\n\nMost recent prose:\n")
			sb.WriteString(tail)
		}
		return sb.String()
	}
	return tail
}

// trailingRunes returns at most limit runes from the end of s, snapped
// forward to the next word boundary so the window never opens mid-word.
func trailingRunes(s string, limit int) string {
	if limit <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	tail := string(runes[len(runes)-limit:])
	if idx := strings.IndexAny(tail, " \n\t"); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
