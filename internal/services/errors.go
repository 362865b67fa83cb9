package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Wrap tags errors with one of
// these so callers can branch with errors.Is without string matching.
var (
	// ErrProvider marks a research/generation/narration call that failed
	// or timed out. Recovered at the smallest possible granularity.
	ErrProvider = errors.New("provider unavailable")
	// ErrMalformedOutput marks provider output that could not be parsed.
	// Recovered via fallback defaults, logged, not fatal.
	ErrMalformedOutput = errors.New("malformed provider output")
	// ErrConflict marks a timeline proposal rejected by the consistency
	// checker. Not a failure; carries the conflicting assignments.
	ErrConflict = errors.New("consistency conflict")
	// ErrNoSources marks a research query that returned zero passages.
	ErrNoSources = errors.New("no sources found")
	// ErrStore marks a shelf store failure. Fatal for the current
	// operation; prior persisted state is left untouched.
	ErrStore = errors.New("store unavailable")
	// ErrValidation marks caller input that failed validation.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing book, chapter, or entity.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStore
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRecoverable reports whether a scene-level failure should be absorbed as
// a placeholder rather than failing the whole chapter run.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformedOutput)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
