package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
)

// handleLatestScore returns the most recent compliance score.
//
// GET /api/v1/scores/latest
func (s *Server) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.scores.LatestScore(r.Context())
	if errors.Is(err, governance.ErrNoScores) {
		writeNotFound(w, "no collection run has completed yet")
		return
	}
	if err != nil {
		s.logger.Error("fetching latest score", "error", err)
		writeInternalError(w, "failed to fetch latest score")
		return
	}

	writeJSON(w, http.StatusOK, score)
}

// handleListScores returns recent scores, most recent first.
//
// GET /api/v1/scores?limit=50
func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	scores, err := s.scores.ListScores(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing scores", "error", err)
		writeInternalError(w, "failed to list scores")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scores": scores,
		"count":  len(scores),
	})
}

// parseLimit reads an optional limit query parameter. Invalid values
// get a 400 response; the second return is false when the caller
// should stop.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}
