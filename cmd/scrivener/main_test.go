package main

import (
	"context"
	"testing"

	"scrivener/internal/testsupport"
)

func TestRootShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env)
	if err != nil {
		t.Fatalf("root command: %v", err)
	}
	requireContains(t, out, "scrivener")
	requireContains(t, out, "Available Commands")
}

func TestStatusFallsBackToShelf(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	book := testsupport.NewBook(t, env.store, "The Ides of March", "")
	chapter := testsupport.NewChapter(t, env.store, book.ID, "One", "")
	if _, err := env.store.StartChapter(ctx, chapter.ID); err != nil {
		t.Fatalf("start chapter: %v", err)
	}

	out, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon: not running")
	requireContains(t, out, "Chapters: 1 total, 1 processing")
}
