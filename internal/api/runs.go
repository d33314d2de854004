package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jaredboynton/postman-probe-sub001/internal/collector"
)

// handleListRuns returns the collection run history, most recent first.
//
// GET /api/v1/runs?limit=50
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeInternalError(w, "failed to list collection runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleTriggerRun starts a manual collection run in the background.
//
// POST /api/v1/runs/trigger
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeInternalError(w, "collector not available")
		return
	}

	// The run outlives the request; it gets its own context.
	if err := s.collector.Trigger(context.Background()); err != nil {
		if errors.Is(err, collector.ErrRunInProgress) {
			writeConflict(w, "a collection run is already in progress")
			return
		}
		s.logger.Error("triggering run", "error", err)
		writeInternalError(w, "failed to trigger collection run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "triggered",
	})
}
