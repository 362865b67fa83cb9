package main

import (
	"context"
	"strings"
	"testing"

	"scrivener/internal/testsupport"
)

func TestBookAddListShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "book", "add", "The Ides of March", "--author", "V. Corvinus")
	if err != nil {
		t.Fatalf("book add: %v", err)
	}
	requireContains(t, out, "Added book 1: The Ides of March")

	out, err = runCLI(t, env, "book", "list")
	if err != nil {
		t.Fatalf("book list: %v", err)
	}
	requireContains(t, out, "The Ides of March")
	requireContains(t, out, "V. Corvinus")

	out, err = runCLI(t, env, "book", "show", "1")
	if err != nil {
		t.Fatalf("book show: %v", err)
	}
	requireContains(t, out, "Book 1: The Ides of March")
	requireContains(t, out, "No chapters yet.")
}

func TestBookDeleteRequiresForce(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewBook(t, env.store, "Doomed", "")

	if _, err := runCLI(t, env, "book", "delete", "1"); err == nil {
		t.Fatal("delete without --force should fail")
	}
	out, err := runCLI(t, env, "book", "delete", "1", "--force")
	if err != nil {
		t.Fatalf("book delete --force: %v", err)
	}
	requireContains(t, out, "Deleted book 1")

	if _, err := runCLI(t, env, "book", "delete", "1", "--force"); err == nil {
		t.Fatal("deleting a missing book should fail")
	}
}

func TestBookExportCompletedChaptersOnly(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	book := testsupport.NewBook(t, env.store, "Gallic Wars", "")
	done := testsupport.NewChapter(t, env.store, book.ID, "Crossing the Rubicon", "")
	testsupport.NewChapter(t, env.store, book.ID, "Unfinished", "")

	if _, err := runCLI(t, env, "book", "export", "1"); err == nil {
		t.Fatal("export with no completed chapters should fail")
	}

	if _, err := env.store.StartChapter(ctx, done.ID); err != nil {
		t.Fatalf("start chapter: %v", err)
	}
	if err := env.store.FinishChapter(ctx, done.ID, "The die was cast."); err != nil {
		t.Fatalf("finish chapter: %v", err)
	}

	out, err := runCLI(t, env, "book", "export", "1")
	if err != nil {
		t.Fatalf("book export: %v", err)
	}
	requireContains(t, out, "# Gallic Wars")
	requireContains(t, out, "## Chapter 1: Crossing the Rubicon")
	requireContains(t, out, "The die was cast.")
	if strings.Contains(out, "Unfinished") {
		t.Fatalf("export should skip draft chapters, got %q", out)
	}
}

func TestChapterAddRetryLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := runCLI(t, env, "book", "add", "The Ides of March"); err != nil {
		t.Fatalf("book add: %v", err)
	}
	out, err := runCLI(t, env, "chapter", "add", "1", "The Senate Floor", "--goal", "Caesar arrives")
	if err != nil {
		t.Fatalf("chapter add: %v", err)
	}
	requireContains(t, out, "Added chapter 1 (position 1) to book 1")

	// Retry only applies to errored chapters.
	if _, err := runCLI(t, env, "chapter", "retry", "1"); err == nil {
		t.Fatal("retry of a draft chapter should fail")
	}

	if _, err := env.store.StartChapter(ctx, 1); err != nil {
		t.Fatalf("start chapter: %v", err)
	}
	if err := env.store.FailChapter(ctx, 1, "provider down"); err != nil {
		t.Fatalf("fail chapter: %v", err)
	}

	out, err = runCLI(t, env, "chapter", "retry", "1")
	if err != nil {
		t.Fatalf("chapter retry: %v", err)
	}
	requireContains(t, out, "Chapter 1 returned to draft")

	out, err = runCLI(t, env, "chapter", "show", "1")
	if err != nil {
		t.Fatalf("chapter show: %v", err)
	}
	requireContains(t, out, "Status: draft")
}
