package shelf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scrivener/internal/timeline"
)

// NewChapterParams carries the caller-supplied fields for CreateChapter.
type NewChapterParams struct {
	BookID      int64
	Title       string
	Goal        string
	Protagonist string
	Place       string
	Opens       *timeline.Date
	Closes      *timeline.Date
}

// CreateChapter appends a draft chapter to a book.
func (s *Store) CreateChapter(ctx context.Context, params NewChapterParams) (*Chapter, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.New("chapter title is required")
	}
	book, err := s.GetBook(ctx, params.BookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("book %d not found", params.BookID)
	}
	if params.Opens != nil && params.Closes != nil && params.Closes.Before(*params.Opens) {
		return nil, errors.New("chapter closes before it opens")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	var position int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM chapters WHERE book_id = ?`,
		params.BookID,
	).Scan(&position); err != nil {
		return nil, fmt.Errorf("next chapter position: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO chapters (
            book_id, position, title, goal, status, content,
            protagonist, place, opens, closes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, '', ?, ?, ?, ?, ?, ?)`,
		params.BookID,
		position,
		title,
		nullableString(strings.TrimSpace(params.Goal)),
		StatusDraft,
		nullableString(strings.TrimSpace(params.Protagonist)),
		nullableString(strings.TrimSpace(params.Place)),
		nullableDate(params.Opens),
		nullableDate(params.Closes),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChapter(ctx, id)
}

// GetChapter fetches a chapter by identifier. Returns nil when no chapter exists.
func (s *Store) GetChapter(ctx context.Context, id int64) (*Chapter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
	chapter, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return chapter, nil
}

// ListChapters returns a book's chapters in position order.
func (s *Store) ListChapters(ctx context.Context, bookID int64) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE book_id = ? ORDER BY position, id`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()
	return collectChapters(rows)
}

// ListChaptersByStatus returns every chapter currently in the given status.
func (s *Store) ListChaptersByStatus(ctx context.Context, status Status) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE status = ? ORDER BY id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters by status: %w", err)
	}
	defer rows.Close()
	return collectChapters(rows)
}

func collectChapters(rows *sql.Rows) ([]*Chapter, error) {
	var chapters []*Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return chapters, nil
}

// UpdateChapter persists changes to an existing chapter.
func (s *Store) UpdateChapter(ctx context.Context, chapter *Chapter) error {
	if chapter == nil {
		return errors.New("chapter is nil")
	}
	chapter.UpdatedAt = time.Now().UTC()
	err := s.execWithoutResultRetry(
		ctx,
		`UPDATE chapters SET
            title = ?, goal = ?, status = ?, content = ?,
            progress_message = ?, error_message = ?,
            protagonist = ?, place = ?, opens = ?, closes = ?, updated_at = ?
        WHERE id = ?`,
		chapter.Title,
		nullableString(chapter.Goal),
		chapter.Status,
		chapter.Content,
		nullableString(chapter.ProgressMessage),
		nullableString(chapter.ErrorMessage),
		nullableString(chapter.Protagonist),
		nullableString(chapter.Place),
		nullableDate(chapter.Opens),
		nullableDate(chapter.Closes),
		chapter.UpdatedAt.Format(time.RFC3339Nano),
		chapter.ID,
	)
	if err != nil {
		return fmt.Errorf("update chapter: %w", err)
	}
	return nil
}

// DeleteChapter removes a chapter. Returns false when it did not exist.
func (s *Store) DeleteChapter(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM chapters WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete chapter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns chapter counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM chapters GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("chapter stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		status := Status(statusStr)
		stats.ByStatus[status] = count
		stats.Total += count
		if status == StatusProcessing {
			stats.Processing = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// CountProcessing reports how many chapters are mid-run right now.
func (s *Store) CountProcessing(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chapters WHERE status = ?`, StatusProcessing,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count processing chapters: %w", err)
	}
	return count, nil
}

// Health summarizes shelf state for the API health endpoint and the
// drain gate.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Healthy:    true,
		Processing: stats.Processing,
		Errored:    stats.ByStatus[StatusError],
	}
	switch {
	case summary.Processing > 0:
		summary.Detail = fmt.Sprintf("%d chapter(s) processing", summary.Processing)
	case summary.Errored > 0:
		summary.Detail = fmt.Sprintf("%d chapter(s) errored", summary.Errored)
	default:
		summary.Detail = "idle"
	}
	return summary, nil
}
