// Package logging provides slog construction and attribute helpers shared
// across the daemon, pipeline, and CLI.
//
// New builds a logger from explicit options; NewFromConfig derives options
// from application config and tees output to the log directory. Attribute
// helpers keep field names consistent (component, chapter_id, scene,
// correlation_id) so log events stay queryable, and NewNop gives packages
// a safe default when no logger is injected.
package logging
