package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"scrivener/internal/cartographer"
	"scrivener/internal/config"
	"scrivener/internal/draingate"
	"scrivener/internal/services"
	"scrivener/internal/shelf"
)

type stubStarter struct {
	err     error
	started []int64
}

func (s *stubStarter) StartChapter(_ context.Context, chapterID int64) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, chapterID)
	return nil
}

type stubMapper struct {
	report cartographer.Report
	err    error
}

func (s *stubMapper) MapEntity(context.Context, int64, string) (cartographer.Report, error) {
	return s.report, s.err
}

func newTestServer(t *testing.T, starter ChapterStarter, mapper EntityMapper) (*httptest.Server, *shelf.Store) {
	t.Helper()
	store, err := shelf.OpenPath(filepath.Join(t.TempDir(), "shelf.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.Paths.APIBind = "127.0.0.1:0"
	srv := newAPIServer(cfg, store, starter, mapper, draingate.New(store, nil), nil)
	if srv == nil {
		t.Fatal("api server should be configured")
	}
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, store := newTestServer(t, &stubStarter{}, nil)
	ctx := context.Background()
	book, err := store.CreateBook(ctx, "The Ides", "", "")
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if _, err := store.CreateChapter(ctx, shelf.NewChapterParams{BookID: book.ID, Title: "One"}); err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status statusResponse
	decodeBody(t, resp, &status)
	if !status.Running || status.Total != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestBookAndChapterLifecycleOverAPI(t *testing.T) {
	starter := &stubStarter{}
	ts, store := newTestServer(t, starter, nil)

	resp := postJSON(t, ts.URL+"/api/books", map[string]string{"title": "The Ides"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create book status %d", resp.StatusCode)
	}
	var book bookPayload
	decodeBody(t, resp, &book)

	resp = postJSON(t, fmt.Sprintf("%s/api/books/%d/chapters", ts.URL, book.ID), map[string]string{
		"title":       "The Senate",
		"goal":        "cover the assassination",
		"protagonist": "Caesar",
		"place":       "Rome",
		"opens":       "0044-03-15 BC",
		"closes":      "0044-03-15 BC",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chapter status %d", resp.StatusCode)
	}
	var chapter chapterPayload
	decodeBody(t, resp, &chapter)
	if chapter.Opens != "0044-03-15 BC" {
		t.Fatalf("chapter opens = %q", chapter.Opens)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/chapters/%d/start", ts.URL, chapter.ID), map[string]string{})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status %d", resp.StatusCode)
	}
	resp.Body.Close()
	if len(starter.started) != 1 || starter.started[0] != chapter.ID {
		t.Fatalf("starter not invoked correctly: %v", starter.started)
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/chapters/%d", ts.URL, chapter.ID))
	if err != nil {
		t.Fatalf("GET chapter: %v", err)
	}
	var fetched chapterPayload
	decodeBody(t, resp, &fetched)
	if fetched.Title != "The Senate" {
		t.Fatalf("unexpected chapter %+v", fetched)
	}

	_ = store
}

func TestStartConflictOverAPI(t *testing.T) {
	starter := &stubStarter{err: shelf.ErrAlreadyProcessing}
	ts, store := newTestServer(t, starter, nil)
	ctx := context.Background()
	book, _ := store.CreateBook(ctx, "The Ides", "", "")
	chapter, _ := store.CreateChapter(ctx, shelf.NewChapterParams{BookID: book.ID, Title: "One"})

	resp := postJSON(t, fmt.Sprintf("%s/api/chapters/%d/start", ts.URL, chapter.ID), map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for an in-flight chapter, got %d", resp.StatusCode)
	}
}

func TestTimelineProposeOverAPI(t *testing.T) {
	ts, store := newTestServer(t, &stubStarter{}, nil)
	book, _ := store.CreateBook(context.Background(), "The Ides", "", "")
	timelineURL := fmt.Sprintf("%s/api/books/%d/timeline", ts.URL, book.ID)

	resp := postJSON(t, timelineURL, map[string]string{
		"entity": "Caesar",
		"place":  "Rome",
		"start":  "0044-03-15 BC",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first proposal status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, timelineURL, map[string]string{
		"entity": "Caesar",
		"place":  "Alexandria",
		"start":  "0044-03-15 BC",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflicting proposal status %d", resp.StatusCode)
	}
	var rejection struct {
		Accepted  bool                `json:"accepted"`
		Conflicts []assignmentPayload `json:"conflicts"`
	}
	decodeBody(t, resp, &rejection)
	if rejection.Accepted || len(rejection.Conflicts) != 1 || rejection.Conflicts[0].Place != "Rome" {
		t.Fatalf("unexpected rejection %+v", rejection)
	}

	resp, err := http.Get(timelineURL)
	if err != nil {
		t.Fatalf("GET timeline: %v", err)
	}
	var listing struct {
		Assignments []assignmentPayload `json:"assignments"`
	}
	decodeBody(t, resp, &listing)
	if len(listing.Assignments) != 1 {
		t.Fatalf("expected 1 stored assignment, got %d", len(listing.Assignments))
	}
	if listing.Assignments[0].Granularity != "exact" {
		t.Fatalf("unexpected granularity %q", listing.Assignments[0].Granularity)
	}
}

func TestDrainEndpointReflectsProcessing(t *testing.T) {
	ts, store := newTestServer(t, &stubStarter{}, nil)
	ctx := context.Background()

	resp, err := http.Get(ts.URL + "/api/drain")
	if err != nil {
		t.Fatalf("GET drain: %v", err)
	}
	var decision drainResponse
	decodeBody(t, resp, &decision)
	if !decision.Safe {
		t.Fatalf("idle shelf should be safe to drain: %+v", decision)
	}

	book, _ := store.CreateBook(ctx, "The Ides", "", "")
	chapter, _ := store.CreateChapter(ctx, shelf.NewChapterParams{BookID: book.ID, Title: "One"})
	if _, err := store.StartChapter(ctx, chapter.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	resp, err = http.Get(ts.URL + "/api/drain")
	if err != nil {
		t.Fatalf("GET drain: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while processing, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &decision)
	if decision.Safe || decision.Processing != 1 {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestMapEndpoint(t *testing.T) {
	mapper := &stubMapper{report: cartographer.Report{Entity: "Caesar", Mapped: 2, Conflicts: 1}}
	ts, store := newTestServer(t, &stubStarter{}, mapper)
	book, _ := store.CreateBook(context.Background(), "The Ides", "", "")

	resp := postJSON(t, fmt.Sprintf("%s/api/books/%d/map", ts.URL, book.ID), map[string]string{"entity": "Caesar"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("map status %d", resp.StatusCode)
	}
	var report struct {
		Mapped    int `json:"mapped"`
		Conflicts int `json:"conflicts"`
	}
	decodeBody(t, resp, &report)
	if report.Mapped != 2 || report.Conflicts != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestMapEndpointNoSourcesIs404(t *testing.T) {
	mapper := &stubMapper{
		report: cartographer.Report{Entity: "Caesar"},
		err:    services.Wrap(services.ErrNoSources, "cartographer", "map entity", "Caesar", nil),
	}
	ts, store := newTestServer(t, &stubStarter{}, mapper)
	book, _ := store.CreateBook(context.Background(), "The Ides", "", "")

	resp := postJSON(t, fmt.Sprintf("%s/api/books/%d/map", ts.URL, book.ID), map[string]string{"entity": "Caesar"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when research finds nothing, got %d", resp.StatusCode)
	}
}

func TestMapEndpointWithoutMapper(t *testing.T) {
	ts, store := newTestServer(t, &stubStarter{}, nil)
	book, _ := store.CreateBook(context.Background(), "The Ides", "", "")

	resp := postJSON(t, fmt.Sprintf("%s/api/books/%d/map", ts.URL, book.ID), map[string]string{"entity": "Caesar"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a mapper, got %d", resp.StatusCode)
	}
}

func TestUnknownBookIs404(t *testing.T) {
	ts, _ := newTestServer(t, &stubStarter{}, nil)
	resp, err := http.Get(ts.URL + "/api/books/42")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
