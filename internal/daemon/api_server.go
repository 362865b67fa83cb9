package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"scrivener/internal/cartographer"
	"scrivener/internal/config"
	"scrivener/internal/draingate"
	"scrivener/internal/logging"
	"scrivener/internal/services"
	"scrivener/internal/shelf"
	"scrivener/internal/timeline"
)

// ChapterStarter launches a chapter writing run.
type ChapterStarter interface {
	StartChapter(ctx context.Context, chapterID int64) error
}

// EntityMapper researches an entity onto a book's timeline.
type EntityMapper interface {
	MapEntity(ctx context.Context, bookID int64, entity string) (cartographer.Report, error)
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	store   *shelf.Store
	starter ChapterStarter
	mapper  EntityMapper
	gate    *draingate.Gate

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, store *shelf.Store, starter ChapterStarter, mapper EntityMapper, gate *draingate.Gate, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		store:   store,
		starter: starter,
		mapper:  mapper,
		gate:    gate,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/drain", srv.handleDrain)
	mux.HandleFunc("/api/books", srv.handleBooks)
	mux.HandleFunc("/api/books/", srv.handleBookSubtree)
	mux.HandleFunc("/api/chapters/", srv.handleChapterSubtree)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Running    bool           `json:"running"`
	PID        int            `json:"pid"`
	Database   string         `json:"database"`
	Total      int            `json:"total_chapters"`
	Processing int            `json:"processing"`
	ByStatus   map[string]int `json:"by_status"`
	Health     string         `json:"health"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	health, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Running:    true,
		PID:        pid(),
		Database:   s.store.Path(),
		Total:      stats.Total,
		Processing: stats.Processing,
		ByStatus:   byStatus,
		Health:     health.Detail,
	})
}

type drainResponse struct {
	Safe       bool   `json:"safe"`
	Processing int    `json:"processing"`
	Reason     string `json:"reason"`
}

func (s *apiServer) handleDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	decision := s.gate.Check(r.Context())
	status := http.StatusOK
	if !decision.Safe {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, drainResponse{
		Safe:       decision.Safe,
		Processing: decision.Processing,
		Reason:     decision.Reason,
	})
}

type bookPayload struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Synopsis  string `json:"synopsis,omitempty"`
	CreatedAt string `json:"created_at"`
}

func bookToPayload(book *shelf.Book) bookPayload {
	return bookPayload{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Synopsis:  book.Synopsis,
		CreatedAt: book.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *apiServer) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.store.ListBooks(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload := make([]bookPayload, 0, len(books))
		for _, book := range books {
			payload = append(payload, bookToPayload(book))
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"books": payload})
	case http.MethodPost:
		var req struct {
			Title    string `json:"title"`
			Author   string `json:"author"`
			Synopsis string `json:"synopsis"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		book, err := s.store.CreateBook(r.Context(), req.Title, req.Author, req.Synopsis)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, bookToPayload(book))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBookSubtree routes /api/books/{id}, /api/books/{id}/chapters,
// /api/books/{id}/timeline, and /api/books/{id}/map.
func (s *apiServer) handleBookSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/books/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := s.store.GetBook(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if book == nil {
		s.writeError(w, http.StatusNotFound, "book not found")
		return
	}

	switch action {
	case "":
		s.handleBook(w, r, book)
	case "chapters":
		s.handleBookChapters(w, r, book)
	case "timeline":
		s.handleBookTimeline(w, r, book)
	case "map":
		s.handleBookMap(w, r, book)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleBook(w http.ResponseWriter, r *http.Request, book *shelf.Book) {
	switch r.Method {
	case http.MethodGet:
		chapters, err := s.store.ListChapters(r.Context(), book.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload := make([]chapterPayload, 0, len(chapters))
		for _, chapter := range chapters {
			payload = append(payload, chapterToPayload(chapter, false))
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"book":     bookToPayload(book),
			"chapters": payload,
		})
	case http.MethodDelete:
		if _, err := s.store.DeleteBook(r.Context(), book.ID); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleBookChapters(w http.ResponseWriter, r *http.Request, book *shelf.Book) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Title       string `json:"title"`
		Goal        string `json:"goal"`
		Protagonist string `json:"protagonist"`
		Place       string `json:"place"`
		Opens       string `json:"opens"`
		Closes      string `json:"closes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params := shelf.NewChapterParams{
		BookID:      book.ID,
		Title:       req.Title,
		Goal:        req.Goal,
		Protagonist: req.Protagonist,
		Place:       req.Place,
	}
	if req.Opens != "" {
		opens, err := timeline.ParseDate(req.Opens)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Opens = &opens
	}
	if req.Closes != "" {
		closes, err := timeline.ParseDate(req.Closes)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Closes = &closes
	}
	chapter, err := s.store.CreateChapter(r.Context(), params)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, chapterToPayload(chapter, true))
}

type assignmentPayload struct {
	ID          int64  `json:"id"`
	Entity      string `json:"entity"`
	Place       string `json:"place"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Granularity string `json:"granularity"`
}

func assignmentToPayload(a timeline.Assignment) assignmentPayload {
	return assignmentPayload{
		ID:          a.ID,
		Entity:      a.Entity,
		Place:       a.Place,
		Start:       a.Start.String(),
		End:         a.End.String(),
		Granularity: string(a.Granularity()),
	}
}

func (s *apiServer) handleBookTimeline(w http.ResponseWriter, r *http.Request, book *shelf.Book) {
	switch r.Method {
	case http.MethodGet:
		stored, err := s.store.ListAssignments(r.Context(), book.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload := make([]assignmentPayload, 0, len(stored))
		for _, assignment := range stored {
			payload = append(payload, assignmentToPayload(assignment.Assignment))
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"assignments": payload})
	case http.MethodPost:
		var req struct {
			Entity string `json:"entity"`
			Place  string `json:"place"`
			Start  string `json:"start"`
			End    string `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		start, err := timeline.ParseDate(req.Start)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		end := start
		if req.End != "" {
			if end, err = timeline.ParseDate(req.End); err != nil {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		candidate, err := timeline.NewAssignment(req.Entity, req.Place, start, end)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		proposal, err := s.store.ProposeAssignment(r.Context(), book.ID, candidate)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !proposal.Accepted() {
			conflicts := make([]assignmentPayload, 0, len(proposal.Conflicts))
			for _, conflict := range proposal.Conflicts {
				conflicts = append(conflicts, assignmentToPayload(conflict))
			}
			s.writeJSON(w, http.StatusConflict, map[string]any{
				"accepted":  false,
				"conflicts": conflicts,
			})
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{
			"accepted":   true,
			"assignment": assignmentToPayload(proposal.Stored.Assignment),
		})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleBookMap(w http.ResponseWriter, r *http.Request, book *shelf.Book) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.mapper == nil {
		s.writeError(w, http.StatusServiceUnavailable, "cartographer is not configured")
		return
	}
	var req struct {
		Entity string `json:"entity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.mapper.MapEntity(r.Context(), book.ID, req.Entity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoSources):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"entity":    report.Entity,
		"passages":  report.Passages,
		"extracted": report.Extracted,
		"mapped":    report.Mapped,
		"conflicts": report.Conflicts,
		"dropped":   report.Dropped,
	})
}

type chapterPayload struct {
	ID          int64  `json:"id"`
	BookID      int64  `json:"book_id"`
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Goal        string `json:"goal,omitempty"`
	Status      string `json:"status"`
	Progress    string `json:"progress,omitempty"`
	Error       string `json:"error,omitempty"`
	Protagonist string `json:"protagonist,omitempty"`
	Place       string `json:"place,omitempty"`
	Opens       string `json:"opens,omitempty"`
	Closes      string `json:"closes,omitempty"`
	WordCount   int    `json:"word_count"`
	Content     string `json:"content,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

func chapterToPayload(chapter *shelf.Chapter, includeContent bool) chapterPayload {
	payload := chapterPayload{
		ID:          chapter.ID,
		BookID:      chapter.BookID,
		Position:    chapter.Position,
		Title:       chapter.Title,
		Goal:        chapter.Goal,
		Status:      string(chapter.Status),
		Progress:    chapter.ProgressMessage,
		Error:       chapter.ErrorMessage,
		Protagonist: chapter.Protagonist,
		Place:       chapter.Place,
		WordCount:   chapter.WordCount(),
		UpdatedAt:   chapter.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if chapter.Opens != nil {
		payload.Opens = chapter.Opens.String()
	}
	if chapter.Closes != nil {
		payload.Closes = chapter.Closes.String()
	}
	if includeContent {
		payload.Content = chapter.Content
	}
	return payload
}

// handleChapterSubtree routes /api/chapters/{id}, /api/chapters/{id}/start,
// and /api/chapters/{id}/retry.
func (s *apiServer) handleChapterSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chapters/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid chapter id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		chapter, err := s.store.GetChapter(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if chapter == nil {
			s.writeError(w, http.StatusNotFound, "chapter not found")
			return
		}
		s.writeJSON(w, http.StatusOK, chapterToPayload(chapter, true))
	case "start":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.starter.StartChapter(r.Context(), id); err != nil {
			if errors.Is(err, shelf.ErrAlreadyProcessing) {
				s.writeError(w, http.StatusConflict, err.Error())
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
	case "retry":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		ok, err := s.store.RetryChapter(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			s.writeError(w, http.StatusConflict, "chapter is not in error")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"retried": true})
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("api response encode failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
