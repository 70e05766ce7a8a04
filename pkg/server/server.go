// Package server exposes the analysis requester over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/pario-ai/fxanalyst/pkg/analysis"
	"github.com/pario-ai/fxanalyst/pkg/config"
	"github.com/pario-ai/fxanalyst/pkg/models"
)

const maxBodyBytes = 1 << 20

// Analyzer runs an analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, market []models.Candle) (analysis.Result, error)
}

// StatsSource reports cache statistics.
type StatsSource interface {
	Stats(ctx context.Context) (models.CacheStats, error)
}

// Server is the fxanalyst HTTP API.
type Server struct {
	cfg      *config.Config
	analyzer Analyzer
	stats    StatsSource
	mux      chi.Router
}

// New creates a Server. stats may be nil when caching is disabled.
func New(cfg *config.Config, a Analyzer, stats StatsSource) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: a,
		stats:    stats,
		mux:      chi.NewRouter(),
	}

	s.mux.Use(requestID)
	s.mux.Use(middleware.Recoverer)
	if cfg.RateLimit.Requests > 0 {
		s.mux.Use(httprate.LimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Route("/api", func(r chi.Router) {
		r.Post("/analysis", s.handleAnalysis)
		r.Get("/cache/stats", s.handleCacheStats)
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("fxanalyst listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req.Prompt, req.MarketData)
	if err != nil {
		status, msg := errorStatus(err)
		log.Printf("analysis %s failed: %v", middleware.GetReqID(r.Context()), err)
		writeJSONError(w, status, msg)
		return
	}

	if res.Cached {
		w.Header().Set("X-Fxanalyst-Cache", "hit")
	} else {
		w.Header().Set("X-Fxanalyst-Cache", "miss")
	}
	writeJSON(w, http.StatusOK, models.AnalysisResponse{Analysis: res.Text, Cached: res.Cached})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSONError(w, http.StatusNotFound, "cache disabled")
		return
	}
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		log.Printf("cache stats: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "cache stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrEmptyPrompt):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, analysis.ErrRequestTooLong):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, analysis.ErrMissingAPIKey):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	default:
		return http.StatusBadGateway, "failed to get analysis"
	}
}

// requestID keeps a client-supplied X-Request-ID or assigns a UUID, and
// exposes it through chi's middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"fxanalyst_error","code":%d}}`, message, code)
}
