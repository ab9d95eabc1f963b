// Package httpapi exposes the engine over HTTP: curriculum queries,
// progression trees, daily challenges and a websocket countdown stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-progress/internal/challenge"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/learner"
	"github.com/p-n-ai/pai-progress/internal/platform/metrics"
)

// Checker is a dependency probed by /readyz.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the components served by the API.
type Config struct {
	Curriculum *curriculum.Store
	Challenges *challenge.Registry
	Progress   learner.Progress
	Ledger     learner.Ledger     // optional; adds totalXp to claim responses
	Checks     map[string]Checker // probed by /readyz, e.g. "database", "cache"
	Tick       time.Duration      // stream update interval (default 1s)
}

// Server routes requests to the engine.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// New creates a server. Curriculum, Challenges and Progress are required.
func New(cfg Config) *Server {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /v1/disciplines", s.handleDisciplines)
	s.mux.HandleFunc("GET /v1/disciplines/{id}", s.handleDiscipline)
	s.mux.HandleFunc("GET /v1/disciplines/{id}/skills", s.handleDisciplineSkills)
	s.mux.HandleFunc("GET /v1/disciplines/{id}/tree", s.handleTree)
	s.mux.HandleFunc("GET /v1/skills", s.handleSkills)
	s.mux.HandleFunc("GET /v1/skills/{id}", s.handleSkill)
	s.mux.HandleFunc("GET /v1/skills/{id}/unlockable", s.handleUnlockable)
	s.mux.HandleFunc("POST /v1/curriculum/reload", s.handleReload)
	s.mux.HandleFunc("GET /v1/curriculum/validate", s.handleValidate)
	s.mux.HandleFunc("GET /v1/curriculum/export", s.handleExport)

	s.mux.HandleFunc("POST /v1/learners/{id}/skills/{skill}/complete", s.handleComplete)
	s.mux.HandleFunc("GET /v1/learners/{id}/challenges", s.handleChallenges)
	s.mux.HandleFunc("POST /v1/learners/{id}/challenges/progress", s.handleProgress)
	s.mux.HandleFunc("POST /v1/learners/{id}/challenges/{cid}/claim", s.handleClaim)
	s.mux.HandleFunc("GET /v1/learners/{id}/challenges/remaining", s.handleRemaining)
	s.mux.HandleFunc("GET /v1/learners/{id}/challenges/stream", s.handleStream)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, c := range s.cfg.Checks {
		if err := c.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if !s.cfg.Curriculum.IsLoaded() {
		failed["curriculum"] = "not loaded"
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps engine errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, curriculum.ErrNotFound) {
		writeError(w, http.StatusNotFound, curriculum.ErrNotFound.Error())
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
