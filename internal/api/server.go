// Package api implements the REST API handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/notifylog"
	"github.com/procurelab/reqnotify/internal/storage"
	"github.com/procurelab/reqnotify/internal/workflow"
)

const errInvalidJSONBody = "invalid JSON body"

// Server holds all dependencies for the REST API handlers.
type Server struct {
	scenarios config.ScenarioStore
	runner    *workflow.Runner
	notifyLog notifylog.Store
	runs      storage.RunStore
	routing   *config.RoutingCache
	logger    *slog.Logger
}

// New creates a new API Server backed by the provided collaborators.
func New(
	scenarios config.ScenarioStore,
	runner *workflow.Runner,
	notifyLog notifylog.Store,
	runs storage.RunStore,
	routing *config.RoutingCache,
	logger *slog.Logger,
) *Server {
	return &Server{
		scenarios: scenarios,
		runner:    runner,
		notifyLog: notifyLog,
		runs:      runs,
		routing:   routing,
		logger:    logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Scenarios CRUD and manual triggering
	r.Get("/scenarios", s.handleListScenarios)
	r.Post("/scenarios", s.handleSaveScenario)
	r.Get("/scenarios/{name}", s.handleGetScenario)
	r.Delete("/scenarios/{name}", s.handleDeleteScenario)
	r.Post("/scenarios/{name}/run", s.handleRunScenario)

	// Notification log and run audit
	r.Get("/history", s.handleHistory)
	r.Get("/runs", s.handleListRuns)

	// Mail routing rules cache
	r.Post("/routing/invalidate", s.handleInvalidateRouting)

	// Build info
	r.Get("/version", s.handleVersion)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryLimit parses the ?limit query parameter, falling back to def.
func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return def
}
