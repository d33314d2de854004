package api

import (
	"net/http"
	"strconv"

	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
)

// handleListViolations returns violations with optional filters.
//
// GET /api/v1/violations?run_id=&category=&severity=&limit=&offset=
func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := governance.ViolationFilter{
		RunID:    q.Get("run_id"),
		Category: q.Get("category"),
		Severity: q.Get("severity"),
	}

	var ok bool
	if filter.Limit, ok = parseLimit(w, r); !ok {
		return
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.scores.ListViolations(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing violations", "error", err)
		writeInternalError(w, "failed to list violations")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
