package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/scores", func(r chi.Router) {
			r.Get("/", s.handleListScores)
			r.Get("/latest", s.handleLatestScore)
		})

		r.Get("/violations", s.handleListViolations)
		r.Get("/snapshots", s.handleListSnapshots)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Post("/trigger", s.handleTriggerRun)
		})
	})

	return r
}
