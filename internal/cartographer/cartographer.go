// Package cartographer populates a book's timeline from research. It
// searches the research provider for an entity, asks the generation
// model to extract dated place assignments from the passages, and
// proposes each extraction to the shelf, where the consistency checker
// has the final word.
package cartographer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scrivener/internal/logging"
	"scrivener/internal/services"
	"scrivener/internal/services/llm"
	"scrivener/internal/services/research"
	"scrivener/internal/shelf"
	"scrivener/internal/timeline"
)

// Searcher is the slice of the research client the cartographer needs.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]research.Passage, error)
}

// Completer is the slice of the LLM client the cartographer needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProposalStore is the slice of the shelf the cartographer writes through.
type ProposalStore interface {
	ProposeAssignment(ctx context.Context, bookID int64, candidate timeline.Assignment) (shelf.Proposal, error)
}

// Cartographer maps entities onto a book's timeline.
type Cartographer struct {
	search     Searcher
	client     Completer
	store      ProposalStore
	maxResults int
	logger     *slog.Logger
}

// Report summarizes one mapping run.
type Report struct {
	Entity    string
	Passages  int
	Extracted int
	Mapped    int
	Conflicts int
	Dropped   int
}

const extractionSystemPrompt = `You extract dated place assignments from historical source passages.
For each passage, identify where the subject was and when. Respond with
JSON only, in the form
{"assignments": [{"entity": "...", "place": "...", "start": "YYYY-MM-DD", "end": "YYYY-MM-DD"}]}.
Dates before the common era take a " BC" suffix, for example "0044-03-15 BC".
When a passage pins the subject to a single day, start and end are that
day. When only a year or range is known, use the range. When the place
cannot be determined, use "Unknown". Omit assignments with no date at all.`

// New builds a Cartographer.
func New(search Searcher, client Completer, store ProposalStore, maxResults int, logger *slog.Logger) *Cartographer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Cartographer{
		search:     search,
		client:     client,
		store:      store,
		maxResults: maxResults,
		logger:     logging.NewComponentLogger(logger, "cartographer"),
	}
}

// MapEntity researches an entity and proposes every extracted assignment
// to the book's timeline. Conflicting and malformed extractions are
// counted, not fatal; the report says what happened. A query with zero
// passages returns services.ErrNoSources so callers can distinguish "the
// research provider knows nothing" from "nothing was dated".
func (c *Cartographer) MapEntity(ctx context.Context, bookID int64, entity string) (Report, error) {
	entity = strings.TrimSpace(entity)
	report := Report{Entity: entity}
	if entity == "" {
		return report, services.Wrap(services.ErrValidation, "cartographer", "map entity", "entity name required", nil)
	}

	passages, err := c.search.Search(ctx, entity, c.maxResults)
	if err != nil {
		return report, fmt.Errorf("research %q: %w", entity, err)
	}
	report.Passages = len(passages)
	if len(passages) == 0 {
		c.logger.Info("no sources found for entity", slog.String(logging.FieldEntity, entity))
		return report, services.Wrap(services.ErrNoSources, "cartographer", "map entity", entity, nil)
	}

	extracted, err := c.extract(ctx, entity, passages)
	if err != nil {
		return report, err
	}

	for _, raw := range extracted {
		report.Extracted++
		candidate, ok := c.buildAssignment(entity, raw)
		if !ok {
			report.Dropped++
			continue
		}
		proposal, err := c.store.ProposeAssignment(ctx, bookID, candidate)
		if err != nil {
			return report, fmt.Errorf("propose assignment for %q: %w", entity, err)
		}
		if proposal.Accepted() {
			report.Mapped++
		} else {
			report.Conflicts++
			c.logger.Warn("extraction rejected by timeline",
				slog.String(logging.FieldEntity, entity),
				slog.String("place", candidate.Place),
				slog.String("start", candidate.Start.String()),
				slog.Int("conflicts", len(proposal.Conflicts)))
		}
	}

	c.logger.Info("entity mapped",
		slog.String(logging.FieldEntity, entity),
		slog.Int("passages", report.Passages),
		slog.Int("mapped", report.Mapped),
		slog.Int("conflicts", report.Conflicts),
		slog.Int("dropped", report.Dropped))
	return report, nil
}

var placeCaser = cases.Title(language.Und, cases.NoLower)

// normalizePlace title-cases extracted place names so the same place
// stored by different passages compares equal in conflict messages and
// listings. Already-cased names pass through untouched.
func normalizePlace(place string) string {
	place = strings.TrimSpace(place)
	if place == "" {
		return place
	}
	return placeCaser.String(place)
}

type rawAssignment struct {
	Entity string `json:"entity"`
	Place  string `json:"place"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (c *Cartographer) extract(ctx context.Context, entity string, passages []research.Passage) ([]rawAssignment, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n\n", entity)
	for i, passage := range passages {
		fmt.Fprintf(&sb, "Passage %d (%s):\n%s\n\n", i+1, passage.Title, passage.Text)
	}

	response, err := c.client.CompleteJSON(ctx, extractionSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("extract assignments for %q: %w", entity, err)
	}

	var payload struct {
		Assignments []rawAssignment `json:"assignments"`
	}
	if err := llm.DecodeLLMJSON(response, &payload); err != nil {
		if arrErr := llm.DecodeLLMJSON(response, &payload.Assignments); arrErr != nil {
			return nil, fmt.Errorf("decode extraction for %q: %w", entity, err)
		}
	}
	return payload.Assignments, nil
}

// buildAssignment validates one extraction. A missing end date collapses
// to the start day; a missing or unparseable start drops the extraction.
func (c *Cartographer) buildAssignment(defaultEntity string, raw rawAssignment) (timeline.Assignment, bool) {
	entity := strings.TrimSpace(raw.Entity)
	if entity == "" {
		entity = defaultEntity
	}

	start, err := timeline.ParseDate(raw.Start)
	if err != nil {
		c.logger.Debug("dropping extraction with bad start date",
			slog.String(logging.FieldEntity, entity),
			slog.String("start", raw.Start),
			logging.Error(err))
		return timeline.Assignment{}, false
	}
	end := start
	if strings.TrimSpace(raw.End) != "" {
		end, err = timeline.ParseDate(raw.End)
		if err != nil {
			c.logger.Debug("dropping extraction with bad end date",
				slog.String(logging.FieldEntity, entity),
				slog.String("end", raw.End),
				logging.Error(err))
			return timeline.Assignment{}, false
		}
	}

	candidate, err := timeline.NewAssignment(entity, normalizePlace(raw.Place), start, end)
	if err != nil {
		c.logger.Debug("dropping invalid extraction",
			slog.String(logging.FieldEntity, entity),
			logging.Error(err))
		return timeline.Assignment{}, false
	}
	return candidate, true
}
