// Package shelf persists books, chapters, and the timeline in SQLite and
// exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-chapter recovery, and the status
// transitions the pipeline relies on. StartChapter is the compare-and-set
// that guarantees at most one active run per chapter; SetChapterContent is
// the per-scene checkpoint write.
//
// The timeline side owns the consistency invariant: ProposeAssignment runs
// the checker inside an immediate transaction so concurrent proposals for
// the same entity serialize, and the schema carries a trigger enforcing
// the same rule server-side so no path around the Go checker can violate
// it.
//
// Treat this package as the single source of truth for shelf semantics;
// when you add statuses or columns, update schema.sql and bump
// schemaVersion.
package shelf
