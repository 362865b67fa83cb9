// Package synthesis writes chapter prose one scene at a time. Each scene
// request carries the chapter framing, the scene's outline entry, and a
// bounded window onto what has already been written; failures degrade to
// a visible placeholder so the rest of the chapter can still be drafted.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scrivener/internal/logging"
	"scrivener/internal/services"
)

// Completer is the slice of the LLM client the synthesizer needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Synthesizer turns outline entries into prose.
type Synthesizer struct {
	client Completer
	logger *slog.Logger
}

// SceneRequest describes one scene to write.
type SceneRequest struct {
	BookTitle    string
	ChapterTitle string
	Goal         string
	SceneIndex   int // 1-based
	SceneCount   int
	Description  string
	// Window is the draft's context window at the time of the request.
	Window string
	// Notes are research passages relevant to the scene, if any.
	Notes []string
}

// SceneResult is the outcome of writing one scene. Placeholder is true
// when the provider failed and Text is the stand-in paragraph.
type SceneResult struct {
	Text        string
	Placeholder bool
	Err         error
}

const sceneSystemPrompt = `You are a novelist drafting a chapter scene by scene. Write vivid,
concrete prose that continues naturally from what came before. Earlier
prose shown to you has already been told to the reader; never repeat,
paraphrase, or summarize it. Write only the scene's prose: no headings,
no scene numbers, no commentary.`

const summarySystemPrompt = `Summarize the chapter prose you are given in a few tight paragraphs,
preserving every plot-relevant fact, name, and date. Respond with the
summary only.`

// New builds a Synthesizer.
func New(client Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{
		client: client,
		logger: logging.NewComponentLogger(logger, "synthesis"),
	}
}

// WriteScene drafts one scene. It does not return an error: provider
// failures produce a placeholder result carrying the underlying error so
// the caller can finish the chapter and report the failure at the end.
func (s *Synthesizer) WriteScene(ctx context.Context, req SceneRequest) SceneResult {
	if s.client == nil {
		return placeholderResult(req, services.Wrap(services.ErrConfiguration, "synthesis", "write scene", "no generation client configured", nil))
	}

	ctx = services.WithScene(ctx, req.Description)
	response, err := s.client.Complete(ctx, sceneSystemPrompt, buildScenePrompt(req))
	if err != nil {
		err = services.Wrap(services.ErrProvider, "synthesis", "write scene", "", err)
		s.logger.Warn("scene generation failed, inserting placeholder",
			logging.Error(err),
			slog.Int(logging.FieldSceneIndex, req.SceneIndex),
			slog.Int(logging.FieldSceneCount, req.SceneCount))
		return placeholderResult(req, err)
	}
	text := strings.TrimSpace(response)
	if text == "" {
		err := services.Wrap(services.ErrMalformedOutput, "synthesis", "write scene", "empty scene response", nil)
		s.logger.Warn("scene generation returned nothing, inserting placeholder",
			slog.Int(logging.FieldSceneIndex, req.SceneIndex))
		return placeholderResult(req, err)
	}
	return SceneResult{Text: text}
}

// Summarize condenses the chapter so far into a rolling summary. Errors
// are returned so the caller can keep the previous summary.
func (s *Synthesizer) Summarize(ctx context.Context, content string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("no generation client configured")
	}
	response, err := s.client.Complete(ctx, summarySystemPrompt, content)
	if err != nil {
		return "", fmt.Errorf("summarize chapter: %w", err)
	}
	summary := strings.TrimSpace(response)
	if summary == "" {
		return "", fmt.Errorf("empty summary response")
	}
	return summary, nil
}

func buildScenePrompt(req SceneRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Book: %s\n", strings.TrimSpace(req.BookTitle))
	fmt.Fprintf(&sb, "Chapter: %s\n", strings.TrimSpace(req.ChapterTitle))
	if goal := strings.TrimSpace(req.Goal); goal != "" {
		fmt.Fprintf(&sb, "Chapter goal: %s\n", goal)
	}
	fmt.Fprintf(&sb, "Scene %d of %d: %s\n", req.SceneIndex, req.SceneCount, strings.TrimSpace(req.Description))
	if len(req.Notes) > 0 {
		sb.WriteString("\nResearch notes:\n")
		for _, note := range req.Notes {
			fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(note))
		}
	}
	if window := strings.TrimSpace(req.Window); window != "" {
		sb.WriteString("\nWhat has been written so far (already in the chapter; do not repeat or retell any of it):\n")
		sb.WriteString(window)
		sb.WriteString("\n")
	}
	sb.WriteString("\nWrite the scene now.")
	return sb.String()
}

func placeholderResult(req SceneRequest, err error) SceneResult {
	return SceneResult{
		Text:        PlaceholderText(req.Description),
		Placeholder: true,
		Err:         err,
	}
}

// PlaceholderText is the stand-in paragraph inserted when a scene cannot
// be generated.
func PlaceholderText(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return "[This scene could not be written.]"
	}
	return fmt.Sprintf("[This scene could not be written: %s]", description)
}
