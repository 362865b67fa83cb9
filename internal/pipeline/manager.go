// Package pipeline drives chapter writing runs. A run claims a chapter
// with a compare-and-set, vets its framing against the timeline, plans
// the outline, writes scene after scene with checkpoints between them,
// and lands the chapter in completed or error. Partial prose survives
// every failure path.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrivener/internal/config"
	"scrivener/internal/logging"
	"scrivener/internal/outline"
	"scrivener/internal/services"
	"scrivener/internal/services/research"
	"scrivener/internal/shelf"
	"scrivener/internal/synthesis"
)

// Planner plans a chapter's scene list.
type Planner interface {
	Plan(ctx context.Context, title, goal string) (outline.Outline, error)
}

// SceneWriter writes scenes and rolling summaries.
type SceneWriter interface {
	WriteScene(ctx context.Context, req synthesis.SceneRequest) synthesis.SceneResult
	Summarize(ctx context.Context, content string) (string, error)
}

// Researcher fetches background passages for a chapter's framing.
type Researcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]research.Passage, error)
}

// Manager owns chapter runs. At most one run per chapter is active; the
// store's compare-and-set start is the arbiter.
type Manager struct {
	store      *shelf.Store
	planner    Planner
	writer     SceneWriter
	researcher Researcher
	cfg        *config.Config
	logger     *slog.Logger

	mu      sync.Mutex
	running sync.WaitGroup
	closed  bool
}

// NewManager builds a Manager. The researcher is optional.
func NewManager(store *shelf.Store, planner Planner, writer SceneWriter, researcher Researcher, cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:      store,
		planner:    planner,
		writer:     writer,
		researcher: researcher,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// StartChapter claims the chapter and launches its run in the background.
// It returns once the claim is decided: shelf.ErrAlreadyProcessing when a
// run is already underway, nil when this call won the start.
func (m *Manager) StartChapter(ctx context.Context, chapterID int64) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("pipeline is shut down")
	}
	m.mu.Unlock()

	chapter, err := m.store.StartChapter(ctx, chapterID)
	if err != nil {
		return err
	}

	m.running.Add(1)
	go func() {
		defer m.running.Done()
		m.runChapter(context.WithoutCancel(ctx), chapter)
	}()
	return nil
}

// RunChapter claims the chapter and executes its run synchronously.
func (m *Manager) RunChapter(ctx context.Context, chapterID int64) error {
	chapter, err := m.store.StartChapter(ctx, chapterID)
	if err != nil {
		return err
	}
	m.runChapter(ctx, chapter)
	return nil
}

// Wait blocks until every background run has finished.
func (m *Manager) Wait() {
	m.running.Wait()
}

// Close stops accepting new runs and waits for active ones.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.running.Wait()
}

func (m *Manager) runChapter(ctx context.Context, chapter *shelf.Chapter) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(services.WithChapterID(ctx, chapter.ID), runID)
	logger := m.logger.With(
		slog.Int64(logging.FieldChapterID, chapter.ID),
		slog.Int64(logging.FieldBookID, chapter.BookID),
		slog.String(logging.FieldCorrelationID, runID),
	)
	logger.Info("chapter run started", slog.String("title", chapter.Title))

	stopHeartbeat := m.startHeartbeat(ctx, chapter.ID)
	defer stopHeartbeat()

	if err := m.executeRun(ctx, chapter, logger); err != nil {
		logger.Error("chapter run failed", logging.Error(err))
		if failErr := m.store.FailChapter(ctx, chapter.ID, err.Error()); failErr != nil {
			logger.Error("recording chapter failure failed", logging.Error(failErr))
		}
	}
}

func (m *Manager) executeRun(ctx context.Context, chapter *shelf.Chapter, logger *slog.Logger) error {
	book, err := m.store.GetBook(ctx, chapter.BookID)
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("book %d not found", chapter.BookID)
	}

	// Vet the chapter's framing against the timeline before spending a
	// single token on prose.
	if chapter.Framed() {
		conflicts, err := m.store.CheckSpan(ctx, chapter.BookID, chapter.Protagonist, chapter.Place, *chapter.Opens, *chapter.Closes)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("timeline places %s at %s during this chapter's span; change the framing or the timeline",
				chapter.Protagonist, conflicts[0].Place)
		}
	}

	plan, err := m.planner.Plan(ctx, chapter.Title, chapter.Goal)
	if err != nil {
		return fmt.Errorf("plan chapter: %w", err)
	}
	sceneCount := len(plan.Scenes)
	logger.Info("chapter planned",
		slog.Int(logging.FieldSceneCount, sceneCount),
		slog.Bool("fallback_outline", plan.Fallback))
	if err := m.store.SetChapterContent(ctx, chapter.ID, "", fmt.Sprintf("Planned %d scenes", sceneCount)); err != nil {
		return err
	}

	notes := m.gatherNotes(ctx, chapter, logger)

	draft := synthesis.NewDraft(m.cfg.Writing)
	var sceneFailures []error
	for i, description := range plan.Scenes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("chapter run canceled: %w", err)
		}
		if i > 0 {
			if err := m.sceneDelay(ctx); err != nil {
				return fmt.Errorf("chapter run canceled: %w", err)
			}
		}

		result := m.writer.WriteScene(ctx, synthesis.SceneRequest{
			BookTitle:    book.Title,
			ChapterTitle: chapter.Title,
			Goal:         chapter.Goal,
			SceneIndex:   i + 1,
			SceneCount:   sceneCount,
			Description:  description,
			Window:       draft.ContextWindow(),
			Notes:        notes,
		})
		if result.Placeholder {
			if !services.IsRecoverable(result.Err) {
				// A configuration-class failure would fail every remaining
				// scene identically; stop here instead of filling the
				// chapter with placeholders.
				return fmt.Errorf("scene %d: %w", i+1, result.Err)
			}
			sceneFailures = append(sceneFailures, fmt.Errorf("scene %d: %w", i+1, result.Err))
		}
		draft.Append(result.Text)

		progress := fmt.Sprintf("Scene %d of %d", i+1, sceneCount)
		if err := m.store.SetChapterContent(ctx, chapter.ID, draft.Content(), progress); err != nil {
			return services.Wrap(services.ErrStore, "pipeline", "checkpoint scene", progress, err)
		}
		logger.Info("scene checkpointed",
			slog.Int(logging.FieldSceneIndex, i+1),
			slog.Int(logging.FieldSceneCount, sceneCount),
			slog.Bool("placeholder", result.Placeholder))

		if draft.NeedsSummary() {
			summary, err := m.writer.Summarize(ctx, draft.Content())
			if err != nil {
				// Keep the previous summary; a stale window beats a dead run.
				logger.Warn("rolling summary failed", logging.Error(err))
			} else {
				draft.SetSummary(summary)
			}
		}
	}

	if len(sceneFailures) > 0 {
		messages := make([]string, len(sceneFailures))
		for i, failure := range sceneFailures {
			messages[i] = failure.Error()
		}
		if err := m.store.FailChapter(ctx, chapter.ID, strings.Join(messages, "; ")); err != nil {
			return err
		}
		logger.Warn("chapter finished with placeholder scenes",
			slog.Int("failed_scenes", len(sceneFailures)),
			slog.Int(logging.FieldSceneCount, sceneCount))
		return nil
	}

	if err := m.store.FinishChapter(ctx, chapter.ID, draft.Content()); err != nil {
		return err
	}
	logger.Info("chapter completed",
		slog.Int(logging.FieldSceneCount, sceneCount),
		slog.Int("words", len(strings.Fields(draft.Content()))))
	return nil
}

// gatherNotes fetches research passages for the chapter's protagonist.
// Research is best-effort; a dead provider never blocks the run.
func (m *Manager) gatherNotes(ctx context.Context, chapter *shelf.Chapter, logger *slog.Logger) []string {
	if m.researcher == nil || chapter.Protagonist == "" {
		return nil
	}
	query := chapter.Protagonist
	if chapter.Place != "" {
		query += " " + chapter.Place
	}
	passages, err := m.researcher.Search(ctx, query, m.cfg.Research.MaxResults)
	if err != nil {
		logger.Warn("research lookup failed", logging.Error(err))
		return nil
	}
	notes := make([]string, 0, len(passages))
	for _, passage := range passages {
		notes = append(notes, passage.Text)
	}
	return notes
}

func (m *Manager) sceneDelay(ctx context.Context) error {
	delay := time.Duration(m.cfg.Writing.SceneDelaySeconds) * time.Second
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) startHeartbeat(ctx context.Context, chapterID int64) func() {
	interval := time.Duration(m.cfg.Workflow.HeartbeatInterval) * time.Second
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.store.UpdateHeartbeat(ctx, chapterID); err != nil {
					m.logger.Warn("heartbeat update failed",
						slog.Int64(logging.FieldChapterID, chapterID),
						logging.Error(err))
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// ReclaimStale fails processing chapters whose heartbeat expired. The
// daemon calls this on its poll interval.
func (m *Manager) ReclaimStale(ctx context.Context) (int64, error) {
	timeout := time.Duration(m.cfg.Workflow.HeartbeatTimeout) * time.Second
	if timeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-timeout)
	reclaimed, err := m.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		m.logger.Warn("reclaimed stalled chapters", slog.Int64("count", reclaimed))
	}
	return reclaimed, nil
}
