// Package outline plans a chapter's scene list before any prose is
// written. The planner asks the generation model for a JSON scene list,
// normalizes it, and clamps it to the configured bounds; when the model
// cannot produce a usable plan it falls back to a generic three-scene
// outline so a chapter run never dies at the planning step.
package outline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"scrivener/internal/config"
	"scrivener/internal/logging"
	"scrivener/internal/services/llm"
)

// Completer is the slice of the LLM client the planner needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Planner turns a chapter goal into an ordered scene list.
type Planner struct {
	client    Completer
	minScenes int
	maxScenes int
	logger    *slog.Logger
}

// Outline is an ordered list of scene descriptions.
type Outline struct {
	Scenes []string
	// Fallback is set when the generic outline was used because the
	// model's plan was unusable.
	Fallback bool
}

const planSystemPrompt = `You are a novelist's outlining assistant. Given a chapter title and goal,
plan the chapter as an ordered list of scenes. Each scene is one sentence
describing what happens in it. Respond with JSON only, in the form
{"scenes": ["...", "..."]}. Do not number the scenes.`

// NewPlanner builds a Planner bounded by the writing configuration.
func NewPlanner(client Completer, writing config.Writing, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Planner{
		client:    client,
		minScenes: writing.MinScenes,
		maxScenes: writing.MaxScenes,
		logger:    logging.NewComponentLogger(logger, "outline"),
	}
}

// Plan produces the scene list for a chapter. It never returns an empty
// outline: unusable model output degrades to the fallback plan.
func (p *Planner) Plan(ctx context.Context, title, goal string) (Outline, error) {
	if p.client == nil {
		return p.fallback(title), nil
	}

	userPrompt := buildPlanPrompt(title, goal, p.minScenes, p.maxScenes)
	response, err := p.client.CompleteJSON(ctx, planSystemPrompt, userPrompt)
	if err != nil {
		p.logger.Warn("outline request failed, using fallback plan",
			logging.Error(err),
			slog.String("chapter_title", title))
		return p.fallback(title), nil
	}

	var payload struct {
		Scenes []string `json:"scenes"`
	}
	if err := llm.DecodeLLMJSON(response, &payload); err != nil {
		// Some models return a bare array instead of the wrapper object.
		if arrErr := llm.DecodeLLMJSON(response, &payload.Scenes); arrErr != nil {
			p.logger.Warn("outline response undecodable, using fallback plan",
				logging.Error(err),
				slog.String("chapter_title", title))
			return p.fallback(title), nil
		}
	}

	scenes := normalizeScenes(payload.Scenes)
	if len(scenes) < p.minScenes {
		p.logger.Warn("outline too short, using fallback plan",
			slog.Int("scenes", len(scenes)),
			slog.Int("min_scenes", p.minScenes))
		return p.fallback(title), nil
	}
	if len(scenes) > p.maxScenes {
		scenes = scenes[:p.maxScenes]
	}

	p.logger.Info("chapter outlined",
		slog.String("chapter_title", title),
		slog.Int(logging.FieldSceneCount, len(scenes)))
	return Outline{Scenes: scenes}, nil
}

func buildPlanPrompt(title, goal string, minScenes, maxScenes int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chapter title: %s\n", strings.TrimSpace(title))
	if goal = strings.TrimSpace(goal); goal != "" {
		fmt.Fprintf(&sb, "Chapter goal: %s\n", goal)
	}
	fmt.Fprintf(&sb, "Plan between %d and %d scenes.", minScenes, maxScenes)
	return sb.String()
}

// enumerationPrefix matches leading list markers models add despite
// instructions: "1.", "2)", "Scene 3:", "-", "*".
var enumerationPrefix = regexp.MustCompile(`(?i)^\s*(?:scene\s+\d+\s*[:.\-]|\d+\s*[:.)\-]|[-*•])\s*`)

func normalizeScenes(raw []string) []string {
	scenes := make([]string, 0, len(raw))
	for _, scene := range raw {
		scene = strings.TrimSpace(enumerationPrefix.ReplaceAllString(scene, ""))
		if scene == "" {
			continue
		}
		scenes = append(scenes, scene)
	}
	return scenes
}

func (p *Planner) fallback(title string) Outline {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "the chapter"
	}
	return Outline{
		Scenes: []string{
			fmt.Sprintf("Open %s by establishing the setting and the characters present.", title),
			fmt.Sprintf("Develop the central conflict or discovery of %s.", title),
			fmt.Sprintf("Close %s with its consequences and a hook toward what follows.", title),
		},
		Fallback: true,
	}
}
