// Package services defines shared utilities consumed by the pipeline and
// the external provider clients.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify provider,
//     store, and validation failures consistently across the pipeline.
//   - Context helpers that stamp chapter IDs, scene names, and correlation
//     identifiers for logging.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform.
package services
