// Package api exposes the chat service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/memory"
	"github.com/easeaico/chat-characters/internal/storage"
	"github.com/easeaico/chat-characters/internal/types"
)

// TurnRunner executes chat turns.
type TurnRunner interface {
	Turn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResult, error)
}

// CharacterSource looks characters up.
type CharacterSource interface {
	List(ctx context.Context) ([]types.Character, error)
	Get(ctx context.Context, id string) (*types.Character, error)
}

// MemoryReader inspects and retires stored exchanges.
type MemoryReader interface {
	FetchRecent(ctx context.Context, sessionID, characterID string, limit int) ([]memory.Scored, error)
	Retire(ctx context.Context, sessionID, characterID string, maxAgeDays int) (int64, error)
}

// Searcher finds exchanges similar to an embedded query.
type Searcher interface {
	SearchSimilar(ctx context.Context, sessionID, characterID string, embedding []float32, limit int) ([]storage.Recalled, error)
}

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP server. Searcher and Embedder are
// optional; without them semantic search answers 501.
type Deps struct {
	Chat       TurnRunner
	Characters CharacterSource
	Memory     MemoryReader
	Searcher   Searcher
	Embedder   QueryEmbedder
	Pinger     Pinger
	Metrics    *Metrics
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins []string
	StaticDir      string
	DefaultModel   string
	DayBuckets     bool
	PoolSize       int
	// RequestTimeout bounds non-chat API requests.
	RequestTimeout time.Duration
}

// Server is the HTTP API server.
type Server struct {
	deps   Deps
	opts   Options
	router *chi.Mux
	now    func() time.Time
}

// NewServer creates the server and its routes.
func NewServer(deps Deps, opts Options) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = memory.DefaultConfig().PoolSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
	s.setupRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// The chat turn carries its own completion timeout.
		r.Post("/chat", s.handleChat)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
			r.Get("/models", s.handleModels)
			r.Get("/characters", s.handleListCharacters)
			r.Get("/characters/{id}", s.handleGetCharacter)
			r.Get("/memory", s.handleGetMemory)
			r.Delete("/memory", s.handleRetireMemory)
			r.Get("/memory/search", s.handleSearchMemory)
		})
	})

	if s.opts.StaticDir != "" {
		if info, err := os.Stat(s.opts.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
		} else {
			slog.Warn("static directory not found, front-end disabled", "dir", s.opts.StaticDir)
		}
	}

	s.router = r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	successResponse(w, map[string]string{"status": "healthy"})
}

// errorResponse writes a JSON error response
func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// successResponse writes a JSON success response
func successResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
