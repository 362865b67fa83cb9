package shelf

import (
	"strings"
	"time"

	"scrivener/internal/timeline"
)

// Status tracks which stage of the writing lifecycle a chapter is in.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// ParseStatus validates and normalizes a user-supplied status string.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusProcessing:
		return StatusProcessing, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusError:
		return StatusError, true
	default:
		return "", false
	}
}

// Book groups chapters and owns a timeline. Deleting a book removes its
// chapters, entities, and assignments.
type Book struct {
	ID        int64
	Title     string
	Author    string
	Synopsis  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chapter is the unit of work the pipeline drives. Content accumulates a
// scene at a time while the chapter is processing.
type Chapter struct {
	ID              int64
	BookID          int64
	Position        int
	Title           string
	Goal            string
	Status          Status
	Content         string
	ProgressMessage string
	ErrorMessage    string

	// Optional framing used by the pre-write timeline check. Protagonist
	// and Place are entity/place names; Opens and Closes bound the span
	// the chapter covers.
	Protagonist string
	Place       string
	Opens       *timeline.Date
	Closes      *timeline.Date

	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// WordCount reports the number of whitespace-separated words in Content.
func (c *Chapter) WordCount() int {
	return len(strings.Fields(c.Content))
}

// Framed reports whether the chapter carries enough framing for the
// pre-write timeline check.
func (c *Chapter) Framed() bool {
	return c.Protagonist != "" && c.Place != "" && c.Opens != nil && c.Closes != nil
}

// Entity is a named actor on a book's timeline.
type Entity struct {
	ID        int64
	BookID    int64
	Name      string
	CreatedAt time.Time
}

// StoredAssignment is a persisted timeline assignment with its database
// identity alongside the checker's value type.
type StoredAssignment struct {
	ID        int64
	BookID    int64
	EntityID  int64
	CreatedAt time.Time
	timeline.Assignment
}

// Proposal is the outcome of ProposeAssignment. Exactly one of Stored or
// Conflicts is populated: Stored when the assignment was accepted and
// written, Conflicts when existing exact assignments rejected it.
type Proposal struct {
	Stored    *StoredAssignment
	Conflicts []timeline.Assignment
}

// Accepted reports whether the proposal was written.
func (p Proposal) Accepted() bool { return p.Stored != nil }

// Stats summarizes chapter counts by status for the status surfaces.
type Stats struct {
	Total      int
	ByStatus   map[Status]int
	Processing int
}

// HealthSummary captures what the drain gate and the API health endpoint
// need to know about the shelf.
type HealthSummary struct {
	Healthy    bool
	Processing int
	Errored    int
	Detail     string
}
