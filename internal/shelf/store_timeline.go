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

// ProposeAssignment runs the consistency check against the entity's
// existing assignments and, when no conflict is found, writes the
// candidate. The read-check-write runs inside an immediate transaction so
// concurrent proposals for the same entity serialize; the schema trigger
// backs the same rule up server-side.
func (s *Store) ProposeAssignment(ctx context.Context, bookID int64, candidate timeline.Assignment) (Proposal, error) {
	ctx = ensureContext(ctx)

	var proposal Proposal
	err := retryOnBusy(ctx, func() error {
		proposal = Proposal{}
		return s.proposeAssignmentOnce(ctx, bookID, candidate, &proposal)
	})
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (s *Store) proposeAssignmentOnce(ctx context.Context, bookID int64, candidate timeline.Assignment, out *Proposal) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	existing, err := assignmentsForEntityConn(ctx, conn, bookID, candidate.Entity)
	if err != nil {
		return err
	}

	values := make([]timeline.Assignment, len(existing))
	for i, stored := range existing {
		values[i] = stored.Assignment
	}
	result := timeline.Check(candidate, values)
	if !result.Accepted() {
		out.Conflicts = result.Conflicts
		committed = true
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}

	entityID, err := ensureEntityConn(ctx, conn, bookID, candidate.Entity)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := conn.ExecContext(ctx,
		`INSERT INTO assignments (book_id, entity_id, place, start_date, end_date, start_ord, end_ord, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bookID,
		entityID,
		candidate.Place,
		candidate.Start.String(),
		candidate.End.String(),
		candidate.Start.Ordinal(),
		candidate.End.Ordinal(),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true

	stored := StoredAssignment{
		ID:         id,
		BookID:     bookID,
		EntityID:   entityID,
		CreatedAt:  now,
		Assignment: candidate,
	}
	stored.Assignment.ID = id
	out.Stored = &stored
	return nil
}

// CheckSpan runs the consistency check for a hypothetical assignment
// without writing anything. The pipeline uses it to vet a chapter's
// framing before any prose is generated.
func (s *Store) CheckSpan(ctx context.Context, bookID int64, entity, place string, start, end timeline.Date) ([]timeline.Assignment, error) {
	candidate, err := timeline.NewAssignment(entity, place, start, end)
	if err != nil {
		return nil, err
	}
	existing, err := s.AssignmentsForEntity(ctx, bookID, entity)
	if err != nil {
		return nil, err
	}
	values := make([]timeline.Assignment, len(existing))
	for i, stored := range existing {
		values[i] = stored.Assignment
	}
	return timeline.Check(candidate, values).Conflicts, nil
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const assignmentColumns = `a.id, a.book_id, a.entity_id, e.name, a.place, a.start_date, a.end_date, a.created_at`

func assignmentsForEntityConn(ctx context.Context, q sqlQuerier, bookID int64, entity string) ([]StoredAssignment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+assignmentColumns+`
         FROM assignments a JOIN entities e ON e.id = a.entity_id
         WHERE a.book_id = ? AND e.name = ? COLLATE NOCASE
         ORDER BY a.start_ord, a.id`,
		bookID,
		strings.TrimSpace(entity),
	)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func ensureEntityConn(ctx context.Context, q sqlQuerier, bookID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("entity name required")
	}
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO entities (book_id, name, created_at) VALUES (?, ?, ?)`,
		bookID,
		name,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return 0, fmt.Errorf("upsert entity: %w", err)
	}
	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE book_id = ? AND name = ? COLLATE NOCASE`,
		bookID,
		name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup entity: %w", err)
	}
	return id, nil
}

// AssignmentsForEntity returns an entity's assignments ordered by start.
func (s *Store) AssignmentsForEntity(ctx context.Context, bookID int64, entity string) ([]StoredAssignment, error) {
	return assignmentsForEntityConn(ensureContext(ctx), s.db, bookID, entity)
}

// ListAssignments returns every assignment on a book's timeline.
func (s *Store) ListAssignments(ctx context.Context, bookID int64) ([]StoredAssignment, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+assignmentColumns+`
         FROM assignments a JOIN entities e ON e.id = a.entity_id
         WHERE a.book_id = ?
         ORDER BY e.name COLLATE NOCASE, a.start_ord, a.id`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListEntities returns the named actors on a book's timeline.
func (s *Store) ListEntities(ctx context.Context, bookID int64) ([]Entity, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, book_id, name, created_at FROM entities WHERE book_id = ? ORDER BY name COLLATE NOCASE`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var (
			entity     Entity
			createdRaw string
		)
		if err := rows.Scan(&entity.ID, &entity.BookID, &entity.Name, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			entity.CreatedAt = created
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

func collectAssignments(rows *sql.Rows) ([]StoredAssignment, error) {
	var assignments []StoredAssignment
	for rows.Next() {
		var (
			stored     StoredAssignment
			entityName string
			startRaw   string
			endRaw     string
			createdRaw string
		)
		if err := rows.Scan(
			&stored.ID,
			&stored.BookID,
			&stored.EntityID,
			&entityName,
			&stored.Assignment.Place,
			&startRaw,
			&endRaw,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		stored.Assignment.ID = stored.ID
		stored.Assignment.Entity = entityName
		start, err := timeline.ParseDate(startRaw)
		if err != nil {
			return nil, fmt.Errorf("parse stored start date: %w", err)
		}
		end, err := timeline.ParseDate(endRaw)
		if err != nil {
			return nil, fmt.Errorf("parse stored end date: %w", err)
		}
		stored.Assignment.Start = start
		stored.Assignment.End = end
		if created, err := parseTimeString(createdRaw); err == nil {
			stored.CreatedAt = created
		}
		assignments = append(assignments, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}
