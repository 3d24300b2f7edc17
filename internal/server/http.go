// Package server provides the HTTP boundary for the reranker service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/king-dopey/local-reranker/internal/auth"
	"github.com/king-dopey/local-reranker/internal/reranker"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Host   string
	Port   int
	Logger *slog.Logger

	// APIKey, when non-empty, is required on the rerank endpoint.
	APIKey string

	// EnableProfiler mounts pprof handlers under /debug (development mode).
	EnableProfiler bool
}

// Server wraps an HTTP server exposing the rerank API.
//
// The reranker is injected at construction and may be nil when the scoring
// provider failed to load; in that case /v1/rerank answers 503 while /health
// stays reachable for diagnostics.
type Server struct {
	server   *http.Server
	router   *chi.Mux
	logger   *slog.Logger
	reranker *reranker.Reranker
}

// New creates the HTTP server and registers all routes.
func New(cfg Config, rr *reranker.Reranker) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:   logger,
		reranker: rr,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", s.handleHealth)
	router.Get("/readyz", s.handleReadiness)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIKey(cfg.APIKey))
		r.Post("/v1/rerank", s.handleRerank)
	})

	if cfg.EnableProfiler {
		router.Mount("/debug", middleware.Profiler())
	}

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // scoring large batches can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleRerank serves POST /v1/rerank, compatible with Jina's rerank API.
func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req reranker.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var verr *reranker.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.reranker == nil {
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable: Reranker model not loaded.")
		return
	}

	requestID := uuid.New().String()
	s.logger.Info("reranking", "request_id", requestID, "query", req.Query, "documents", len(req.Documents))

	start := time.Now()
	results, err := s.reranker.Rerank(r.Context(), &req)
	if err != nil {
		s.logger.Error("rerank request failed", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error during reranking.")
		return
	}

	if len(results) > 0 {
		s.logger.Info("reranking done",
			"request_id", requestID,
			"top_index", results[0].Index,
			"top_score", results[0].RelevanceScore,
			"duration", time.Since(start),
		)
	}

	writeJSON(w, http.StatusOK, reranker.Response{ID: requestID, Results: results})
}

// handleHealth serves GET /health. It reports ok unconditionally; provider
// readiness is reported by /readyz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness serves GET /readyz, distinguishing a serving process from
// one whose scoring provider never loaded.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.reranker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "model not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"model":  s.reranker.ModelName(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// requestLoggingMiddleware logs HTTP requests.
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
