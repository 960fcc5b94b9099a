package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/docent/chat"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
	"golang.org/x/sync/errgroup"
)

// DocumentService stores uploads and serves owned documents.
type DocumentService interface {
	Upload(ctx context.Context, owner, filename, contentType string, body io.Reader, size int64) (*core.Document, error)
	ListDocuments(ctx context.Context, owner string) ([]*core.Document, error)
	GetDocument(ctx context.Context, owner string, id core.ID) (*core.Document, error)
	DeleteDocument(ctx context.Context, owner string, id core.ID) error
}

// SearchService finds documents matching a query.
type SearchService interface {
	Search(ctx context.Context, query string, mode search.Mode) ([]*core.SearchHit, error)
}

// ChatService answers questions within owned sessions.
type ChatService interface {
	CreateSession(ctx context.Context, owner, title string) (*core.ChatSession, error)
	ListSessions(ctx context.Context, owner string) ([]*core.ChatSession, error)
	Messages(ctx context.Context, owner string, sessionID core.ID) ([]*core.ChatMessage, error)
	DeleteSession(ctx context.Context, owner string, sessionID core.ID) error
	Ask(ctx context.Context, owner string, sessionID core.ID, question string) (*chat.Answer, error)
	AskStream(ctx context.Context, owner string, sessionID core.ID, question string) <-chan chat.Event
}

// HealthChecker reports whether the model service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the server exposes.
type Dependencies struct {
	Documents DocumentService
	Search    SearchService
	Chat      ChatService
	Health    HealthChecker
}

// Server is the HTTP front end.
type Server struct {
	deps            Dependencies
	addr            string
	maxUpload       int64
	shutdownTimeout time.Duration
	logger          *slog.Logger
	handler         http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Default is ":8000".
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithMaxUploadBytes bounds the size of an upload request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUpload = n
	}
}

// WithShutdownTimeout bounds how long Run waits for requests in flight.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server over deps.
func New(deps Dependencies, opts ...Option) (*Server, error) {
	if deps.Documents == nil || deps.Search == nil || deps.Chat == nil || deps.Health == nil {
		return nil, errors.New("server: all dependencies are required")
	}

	s := &Server{
		deps:            deps,
		addr:            ":8000",
		maxUpload:       100 * 1024 * 1024,
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /api/documents", s.owned(s.handleUpload))
	mux.Handle("GET /api/documents", s.owned(s.handleListDocuments))
	mux.Handle("GET /api/documents/{id}", s.owned(s.handleGetDocument))
	mux.Handle("DELETE /api/documents/{id}", s.owned(s.handleDeleteDocument))

	mux.Handle("POST /api/search", s.owned(s.handleSearch))

	mux.Handle("POST /api/chat/sessions", s.owned(s.handleCreateSession))
	mux.Handle("GET /api/chat/sessions", s.owned(s.handleListSessions))
	mux.Handle("GET /api/chat/sessions/{id}/messages", s.owned(s.handleMessages))
	mux.Handle("DELETE /api/chat/sessions/{id}", s.owned(s.handleDeleteSession))
	mux.Handle("POST /api/chat/sessions/{id}/ask", s.owned(s.handleAsk))
	mux.Handle("POST /api/chat/sessions/{id}/stream", s.owned(s.handleStream))

	return s.logRequests(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type ownerKey struct{}

// owned rejects requests without an owner and passes it on in the context.
func (s *Server) owned(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-User-ID")
		if owner == "" {
			s.writeError(w, r, ErrOwnerMissing)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerOf(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the flusher underneath.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Provider: "connected"}
	if err := s.deps.Health.Ping(ctx); err != nil {
		s.logger.Warn("model service unreachable", "err", err)
		resp.Provider = "disconnected"
	}
	writeJSON(w, http.StatusOK, resp)
}
