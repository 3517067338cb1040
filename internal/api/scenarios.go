package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/workflow"
)

// handleListScenarios returns all configured scenarios.
func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	scenarios, err := s.scenarios.List()
	if err != nil {
		s.logger.Error("listing scenarios failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// handleGetScenario returns one scenario by name.
func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sc, err := s.scenarios.Get(name)
	if err != nil {
		s.logger.Error("loading scenario failed", "scenario", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// handleSaveScenario creates or replaces a scenario definition.
func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	var sc config.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	if err := s.scenarios.Save(&sc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// handleDeleteScenario removes a scenario definition.
func (s *Server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.scenarios.Delete(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRunScenario triggers a synchronous run of the named scenario.
// Pass ?dry_run=1 to compute the decision sets without sending anything.
func (s *Server) handleRunScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sc, err := s.scenarios.Get(name)
	if err != nil {
		s.logger.Error("loading scenario failed", "scenario", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	opts := workflow.RunOptions{
		DryRun:  r.URL.Query().Get("dry_run") == "1",
		Trigger: "api",
	}
	result, err := s.runner.Run(r.Context(), sc, opts)
	if err != nil {
		s.logger.Error("run failed", "scenario", name, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
