// Package httpserver provides the JSON HTTP API of the paper rank service:
// per-source and merged paper search, BM25 ranking, language-model helpers
// and the static frontend.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-rank-service/internal/dedup"
	"github.com/helixir/paper-rank-service/internal/observability"
	"github.com/helixir/paper-rank-service/internal/papersources"
	"github.com/helixir/paper-rank-service/internal/ranking"
)

// Assistant is the language-model surface used by the LLM routes.
type Assistant interface {
	RefineQuery(ctx context.Context, query, model string) (string, error)
	SummarizeAbstract(ctx context.Context, abstract, model string) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxRequestBodySize caps request bodies in bytes (0 means 10 MB).
	MaxRequestBodySize int64
	// CORSAllowedOrigins lists allowed origins; "*" allows any.
	CORSAllowedOrigins []string
	// DefaultMaxResults applies when a search request names no max_results.
	DefaultMaxResults int
	// SearchTimeout bounds each search request (0 means no extra deadline).
	SearchTimeout time.Duration

	// StaticDir is the directory the frontend files are served from. Empty
	// disables the static routes.
	StaticDir string
	// StaticFiles whitelists the files servable from StaticDir.
	StaticFiles []string
}

// Deps bundles the services the handlers call.
type Deps struct {
	Registry  *papersources.Registry
	Merger    *dedup.Merger
	Ranker    *ranking.Ranker
	Assistant Assistant
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
}

const defaultMaxRequestBodySize = 10 << 20

// Server is the HTTP REST API server.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server

	registry  *papersources.Registry
	merger    *dedup.Merger
	ranker    *ranking.Ranker
	assistant Assistant
	metrics   *observability.Metrics
	validate  *validator.Validate
	logger    zerolog.Logger

	shuttingDown atomic.Bool
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 10
	}

	logger := deps.Logger.With().Str("component", "http-server").Logger()
	merger := deps.Merger
	if merger == nil {
		merger = dedup.NewMerger(dedup.MergerConfig{Logger: deps.Logger, Metrics: deps.Metrics})
	}
	ranker := deps.Ranker
	if ranker == nil {
		ranker = ranking.NewRanker(deps.Logger, deps.Metrics)
	}

	s := &Server{
		cfg:       cfg,
		registry:  deps.Registry,
		merger:    merger,
		ranker:    ranker,
		assistant: deps.Assistant,
		metrics:   deps.Metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger))
	r.Use(metricsMiddleware(s.metrics))
	r.Use(corsMiddleware(s.cfg.CORSAllowedOrigins))

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(bodyLimitMiddleware(s.cfg.MaxRequestBodySize))

		for path, source := range sourceRoutes {
			r.Post("/"+path, s.searchSource(source))
		}
		r.Post("/search", s.searchAll)
		r.Post("/rank-bm25", s.rankBM25)
		r.Post("/ollama-refine-query", s.refineQuery)
		r.Post("/ollama-summarize-abstract", s.summarizeAbstract)
	})

	if s.cfg.StaticDir != "" {
		r.Get("/", s.serveIndex)
		r.Get("/{file}", s.serveStatic)
	}

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and gracefully shuts it down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness and the searchable sources.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	if s.shuttingDown.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}

	sources := []string{}
	if s.registry != nil {
		for _, src := range s.registry.EnabledSources() {
			sources = append(sources, string(src.SourceType()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"sources": sources,
		"llm":     s.assistant != nil,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
