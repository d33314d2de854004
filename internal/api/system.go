package api

import (
	"errors"
	"net/http"

	"github.com/jaredboynton/postman-probe-sub001/internal/collector"
)

// handleHealth returns the service health status, the database state
// and the outcome of the most recent collection run.
//
// GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.database != nil {
		if err := s.database.HealthCheck(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unavailable"
		} else {
			resp["database"] = "ok"
		}
	}

	run, err := s.runs.Latest(r.Context())
	switch {
	case errors.Is(err, collector.ErrNoRuns):
		resp["last_run"] = nil
	case err != nil:
		resp["status"] = "degraded"
	default:
		resp["last_run"] = map[string]any{
			"id":         run.ID,
			"status":     run.Status,
			"created_at": run.CreatedAt,
		}
	}

	status := http.StatusOK
	if resp["status"] != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
