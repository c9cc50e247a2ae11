// Package server exposes the metrics engine as a small JSON API, mirroring
// the dashboard's request-layer contract. HTML rendering, forms, and static
// assets are handled elsewhere; only data leaves this package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
	"github.com/jamesmurdza/repo-health-check/internal/gateway"
	"github.com/jamesmurdza/repo-health-check/internal/presenter"
)

// Analyzer is the slice of the metrics engine the server needs.
type Analyzer interface {
	Analyze(ctx context.Context, id domain.Identity) (*domain.MetricSet, error)
}

// Server handles the dashboard API routes.
type Server struct {
	analyzer Analyzer
	logger   *log.Logger
}

// New creates a Server.
func New(analyzer Analyzer, logger *log.Logger) *Server {
	return &Server{analyzer: analyzer, logger: logger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/analyze/{owner}/{repo}", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// ListenAndServe runs the API server with bounded timeouts.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
	s.logger.Printf("Listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseIdentity(r.PathValue("owner") + "/" + r.PathValue("repo"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	set, err := s.analyzer.Analyze(r.Context(), id)
	if err != nil {
		s.logger.Printf("Analyze %s failed: %v", id, err)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, presenter.Dashboard(id, set))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps the typed upstream failures onto HTTP statuses. Anything
// unclassified is reported as a bad upstream.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gateway.ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
