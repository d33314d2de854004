package api

import (
	"net/http"
	"time"

	"github.com/jaredboynton/postman-probe-sub001/internal/snapshot"
)

// handleListSnapshots returns the compliance time series.
//
// GET /api/v1/snapshots?since=RFC3339&limit=100
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	filter := snapshot.Filter{}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	var ok bool
	if filter.Limit, ok = parseLimit(w, r); !ok {
		return
	}

	snapshots, err := s.snapshots.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing snapshots", "error", err)
		writeInternalError(w, "failed to list snapshots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}
