package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"scrivener/internal/config"
	"scrivener/internal/outline"
	"scrivener/internal/pipeline"
	"scrivener/internal/shelf"
	"scrivener/internal/synthesis"
	"scrivener/internal/testsupport"
)

func newTestDaemon(t *testing.T, cfg *config.Config, store *shelf.Store) *Daemon {
	t.Helper()
	manager := pipeline.NewManager(store, outline.NewPlanner(nil, cfg.Writing, nil), synthesis.New(nil, nil), nil, cfg, nil)
	d, err := New(cfg, store, manager, nil, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "scrivenerd.lock")); err != nil {
		t.Fatalf("lock file should exist: %v", err)
	}

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatalf("expected running status, got %+v", status)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := newTestDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second := newTestDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonStartRecoversInterruptedRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	book := testsupport.NewBook(t, store, "The Ides", "")
	chapter := testsupport.NewChapter(t, store, book.ID, "One", "")
	if _, err := store.StartChapter(ctx, chapter.ID); err != nil {
		t.Fatalf("start chapter: %v", err)
	}

	d := newTestDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	defer d.Stop()

	recovered, err := store.GetChapter(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if recovered.Status != shelf.StatusError {
		t.Fatalf("interrupted run should be failed on startup, got %s", recovered.Status)
	}
}
