package main

import (
	"errors"
	"testing"

	"scrivener/internal/services"
	"scrivener/internal/testsupport"
)

func TestTimelineProposeAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewBook(t, env.store, "The Ides of March", "")

	out, err := runCLI(t, env, "timeline", "propose", "1", "Caesar",
		"--place", "Rome", "--start", "0044-03-15 BC")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	requireContains(t, out, "Accepted: Caesar @ Rome")

	out, err = runCLI(t, env, "timeline", "list", "1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Caesar")
	requireContains(t, out, "Rome")
	requireContains(t, out, "exact")
}

func TestTimelineProposeConflictFails(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewBook(t, env.store, "The Ides of March", "")

	if _, err := runCLI(t, env, "timeline", "propose", "1", "Caesar",
		"--place", "Rome", "--start", "0044-03-15 BC"); err != nil {
		t.Fatalf("first propose: %v", err)
	}

	out, err := runCLI(t, env, "timeline", "propose", "1", "Caesar",
		"--place", "Alexandria", "--start", "0044-03-15 BC")
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("conflicting proposal should fail with ErrConflict, got %v", err)
	}
	requireContains(t, out, "Rejected. Conflicting assignments:")
	requireContains(t, out, "Caesar @ Rome")
}

func TestTimelineCheckDoesNotWrite(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewBook(t, env.store, "The Ides of March", "")

	out, err := runCLI(t, env, "timeline", "check", "1", "Caesar",
		"--place", "Rome", "--start", "0044-03-15 BC")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "No conflicts.")

	out, err = runCLI(t, env, "timeline", "list", "1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No assignments on this timeline.")
}
