package api

import (
	"net/http"

	"github.com/procurelab/reqnotify/internal/build"
	"github.com/procurelab/reqnotify/internal/storage"
)

// handleHistory returns notification log entries, newest first.
// Accepts optional ?scenario= and ?limit=N (default 50) query parameters.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	scenario := r.URL.Query().Get("scenario")
	limit := queryLimit(r, 50)
	writeJSON(w, http.StatusOK, s.notifyLog.History(scenario, limit))
}

// handleListRuns returns recent run audit records.
// Accepts optional ?scenario= and ?limit=N (default 50) query parameters.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	scenario := r.URL.Query().Get("scenario")
	limit := queryLimit(r, 50)

	runs, err := s.runs.ListRuns(r.Context(), scenario, limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []storage.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleInvalidateRouting clears the routing rules cache so the next run
// rereads the rules file.
func (s *Server) handleInvalidateRouting(w http.ResponseWriter, _ *http.Request) {
	s.routing.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// handleVersion returns build information.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": build.Version,
		"commit":  build.CommitSHA,
		"built":   build.BuildDate,
	})
}
