// Package api provides the HTTP REST API for Postman Probe.
//
// It exposes the latest governance scores, violation listings, score
// snapshots and collection run history to dashboards, and lets
// operators trigger a collection run manually.
//
// The server follows the same lifecycle pattern as the other
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jaredboynton/postman-probe-sub001/internal/collector"
	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/logging"
	"github.com/jaredboynton/postman-probe-sub001/internal/snapshot"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Trigger starts a manual collection run. *collector.Collector
// satisfies it.
type Trigger interface {
	Trigger(ctx context.Context) error
}

// HealthChecker reports component health for the /health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Scores    governance.Repository
	Snapshots snapshot.Repository
	Runs      collector.RunRepository
	Collector Trigger
	Database  HealthChecker // optional
	Version   string
}

// Server is the HTTP API server for Postman Probe.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	scores    governance.Repository
	snapshots snapshot.Repository
	runs      collector.RunRepository
	collector Trigger
	database  HealthChecker
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Scores == nil || deps.Snapshots == nil || deps.Runs == nil {
		return nil, fmt.Errorf("score, snapshot and run repositories are required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger.With("component", "api"),
		scores:    deps.Scores,
		snapshots: deps.Snapshots,
		runs:      deps.Runs,
		collector: deps.Collector,
		database:  deps.Database,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; stop it with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
