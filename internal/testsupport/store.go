package testsupport

import (
	"context"
	"testing"

	"scrivener/internal/config"
	"scrivener/internal/shelf"
)

// MustOpenStore opens a shelf.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *shelf.Store {
	t.Helper()

	store, err := shelf.Open(cfg)
	if err != nil {
		t.Fatalf("shelf.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook creates a book for tests using the provided store.
func NewBook(t testing.TB, store *shelf.Store, title, author string) *shelf.Book {
	t.Helper()

	book, err := store.CreateBook(context.Background(), title, author, "")
	if err != nil {
		t.Fatalf("store.CreateBook: %v", err)
	}
	return book
}

// NewChapter creates a chapter for tests using the provided store.
func NewChapter(t testing.TB, store *shelf.Store, bookID int64, title, goal string) *shelf.Chapter {
	t.Helper()

	chapter, err := store.CreateChapter(context.Background(), shelf.NewChapterParams{
		BookID: bookID,
		Title:  title,
		Goal:   goal,
	})
	if err != nil {
		t.Fatalf("store.CreateChapter: %v", err)
	}
	return chapter
}
