// Package draingate answers one question for deploy tooling: is it safe
// to stop the daemon right now? The gate is fail-closed. If the shelf
// cannot be read, the answer is no; a wrong "safe" can kill a chapter
// run mid-scene, a wrong "unsafe" only delays a deploy.
package draingate

import (
	"context"
	"fmt"
	"log/slog"

	"scrivener/internal/logging"
)

// Exit codes for scripted callers.
const (
	// ExitSafe means nothing is processing; the daemon may be stopped.
	ExitSafe = 0
	// ExitBlocked means a run is active or the shelf is unreadable.
	ExitBlocked = 1
)

// ProcessingCounter is the slice of the shelf the gate reads.
type ProcessingCounter interface {
	CountProcessing(ctx context.Context) (int, error)
}

// Decision is the gate's answer.
type Decision struct {
	Safe       bool
	Processing int
	Reason     string
}

// ExitCode maps the decision onto the scripted contract.
func (d Decision) ExitCode() int {
	if d.Safe {
		return ExitSafe
	}
	return ExitBlocked
}

// Gate decides whether the daemon can drain.
type Gate struct {
	counter ProcessingCounter
	logger  *slog.Logger
}

// New builds a Gate.
func New(counter ProcessingCounter, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{counter: counter, logger: logging.NewComponentLogger(logger, "draingate")}
}

// Check reads the shelf and decides. It never returns an error: a read
// failure is a blocked decision carrying the failure as its reason.
func (g *Gate) Check(ctx context.Context) Decision {
	processing, err := g.counter.CountProcessing(ctx)
	if err != nil {
		g.logger.Warn("drain check could not read the shelf", logging.Error(err))
		return Decision{
			Safe:   false,
			Reason: fmt.Sprintf("shelf unreadable, refusing to drain: %v", err),
		}
	}
	if processing > 0 {
		return Decision{
			Safe:       false,
			Processing: processing,
			Reason:     fmt.Sprintf("%d chapter(s) still processing", processing),
		}
	}
	return Decision{Safe: true, Reason: "no chapters processing"}
}
