// Package daemon runs the background writing service: a single-instance
// process guard, the HTTP API, and the maintenance loop that recovers
// stalled chapter runs and prunes old logs.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"scrivener/internal/config"
	"scrivener/internal/draingate"
	"scrivener/internal/logging"
	"scrivener/internal/pipeline"
	"scrivener/internal/shelf"
)

// Daemon coordinates the background services and enforces single-instance
// execution via a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *shelf.Store
	pipeline *pipeline.Manager
	mapper   EntityMapper
	gate     *draingate.Gate

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Shelf        shelf.Stats
}

// New constructs a daemon with initialized dependencies. The mapper is
// optional; every other collaborator is required.
func New(cfg *config.Config, store *shelf.Store, manager *pipeline.Manager, mapper EntityMapper, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and pipeline manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	lockPath := filepath.Join(cfg.Paths.LogDir, "scrivenerd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: manager,
		mapper:   mapper,
		gate:     draingate.New(store, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, store, manager, mapper, d.gate, logger)
	return d, nil
}

// Start acquires the daemon lock, recovers interrupted runs, and launches
// the API server and maintenance loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scrivener daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// A chapter left in processing by a dead daemon can never finish;
	// land it in error with its checkpointed prose intact.
	if reset, err := d.store.ResetStuckProcessing(d.ctx); err != nil {
		d.logger.Warn("stuck chapter recovery failed", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("recovered interrupted chapter runs", slog.Int64("count", reset))
	}

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return err
		}
	}

	go d.maintenanceLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("scrivener daemon started",
		slog.String("lock", d.lockPath),
		slog.String("database", d.store.Path()))
	return nil
}

// Stop stops background processing, waits for active chapter runs, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.pipeline.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scrivener daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the status surfaces.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          pid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Shelf = stats
	}
	return status
}

// maintenanceLoop reclaims stalled runs and prunes old logs on the
// configured poll interval.
func (d *Daemon) maintenanceLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Workflow.StatusPollInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.pipeline.ReclaimStale(ctx); err != nil {
				d.logger.Warn("stale run reclaim failed", logging.Error(err))
			}
			logging.CleanupOldLogs(d.logger, d.cfg.Paths.LogDir, "*.log",
				d.cfg.Logging.RetentionDays, "scrivener.log")
		}
	}
}

func pid() int {
	return os.Getpid()
}
