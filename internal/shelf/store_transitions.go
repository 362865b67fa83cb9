package shelf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyProcessing indicates a chapter start lost the race to a run
// that is already underway.
var ErrAlreadyProcessing = errors.New("chapter is already processing")

// StartChapter transitions a chapter into processing. The update is a
// compare-and-set on status, so concurrent starts for the same chapter
// resolve to exactly one winner; losers get ErrAlreadyProcessing.
// Draft, completed, and errored chapters may all start a run.
func (s *Store) StartChapter(ctx context.Context, id int64) (*Chapter, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE chapters SET
            status = ?, progress_message = ?, error_message = NULL,
            last_heartbeat = ?, updated_at = ?
        WHERE id = ? AND status != ?`,
		StatusProcessing,
		"Starting",
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("start chapter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		chapter, err := s.GetChapter(ctx, id)
		if err != nil {
			return nil, err
		}
		if chapter == nil {
			return nil, fmt.Errorf("chapter %d not found", id)
		}
		return nil, ErrAlreadyProcessing
	}
	return s.GetChapter(ctx, id)
}

// SetChapterContent is the per-scene checkpoint: it rewrites the full
// accumulated content and the progress message in one statement so a
// crash never leaves a half-written scene behind.
func (s *Store) SetChapterContent(ctx context.Context, id int64, content, progress string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chapters SET content = ?, progress_message = ?, last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		content,
		nullableString(progress),
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("checkpoint chapter content: %w", err)
	}
	return nil
}

// FinishChapter marks a run successful, storing the final content.
func (s *Store) FinishChapter(ctx context.Context, id int64, content string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chapters SET
            status = ?, content = ?, progress_message = NULL,
            error_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE id = ?`,
		StatusCompleted,
		content,
		now,
		id,
	); err != nil {
		return fmt.Errorf("finish chapter: %w", err)
	}
	return nil
}

// FailChapter marks a run failed. Content already checkpointed is left
// in place so partial work survives the failure.
func (s *Store) FailChapter(ctx context.Context, id int64, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chapters SET
            status = ?, error_message = ?, progress_message = NULL,
            last_heartbeat = NULL, updated_at = ?
        WHERE id = ?`,
		StatusError,
		nullableString(message),
		now,
		id,
	); err != nil {
		return fmt.Errorf("fail chapter: %w", err)
	}
	return nil
}

// RetryChapter returns an errored chapter to draft so it can be started
// again. Returns false when the chapter was not in error.
func (s *Store) RetryChapter(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE chapters SET status = ?, error_message = NULL, updated_at = ? WHERE id = ? AND status = ?`,
		StatusDraft,
		now,
		id,
		StatusError,
	)
	if err != nil {
		return false, fmt.Errorf("retry chapter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight chapter.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chapters SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckProcessing fails chapters left in processing by a previous
// daemon run. Checkpointed content is retained.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE chapters SET
            status = ?, error_message = ?, progress_message = NULL,
            last_heartbeat = NULL, updated_at = ?
        WHERE status = ?`,
		StatusError,
		"writing run interrupted by daemon restart",
		now,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck chapters: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing fails processing chapters whose heartbeat has
// not been refreshed since the cutoff.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE chapters SET
            status = ?, error_message = ?, progress_message = NULL,
            last_heartbeat = NULL, updated_at = ?
        WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusError,
		"writing run stalled (heartbeat expired)",
		now,
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale chapters: %w", err)
	}
	return res.RowsAffected()
}
