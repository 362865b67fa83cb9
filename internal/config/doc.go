// Package config loads, validates, and normalizes scrivener's TOML
// configuration.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the API bind address
//   - LLM: generation provider connection settings (chat completions)
//   - Research: research provider connection settings (passage search)
//   - Narration: optional narration provider settings
//   - Writing: outline bounds, trailing-context budget, inter-scene pacing
//   - Workflow: daemon polling intervals and heartbeat timeouts
//   - Logging: log format, level, and retention
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local scrivener.toml), decodes over Default(), expands
// paths, and validates. All consumers receive the fully normalized struct;
// nothing reads environment variables or files after load.
package config
