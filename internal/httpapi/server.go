// Package httpapi exposes the coaching service over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pace42/orchestrator/internal/agents"
	"github.com/pace42/orchestrator/internal/gather"
	"github.com/pace42/orchestrator/internal/health"
	"github.com/pace42/orchestrator/internal/personas"
	"github.com/pace42/orchestrator/internal/planner"
	"github.com/pace42/orchestrator/internal/session"
	"github.com/pace42/orchestrator/internal/source"
)

// Deps are the wired components the server needs.
type Deps struct {
	Logger    *zap.Logger
	Planner   *planner.Planner
	Runner    *agents.Runner
	Sources   *source.Registry
	Sessions  *session.Manager
	Profiles  *personas.Store
	Health    *health.Manager
	GatherCfg gather.Config
	// RecentRunsCount is how many activities a recent-runs analysis targets.
	RecentRunsCount int
}

// Server routes coaching requests.
type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RecentRunsCount <= 0 {
		deps.RecentRunsCount = 3
	}
	return &Server{deps: deps}
}

// Handler builds the HTTP mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/plan", s.handlePlan)
	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report := s.deps.Health.Check(r.Context())

	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
