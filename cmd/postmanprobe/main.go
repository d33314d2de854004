// Postman Probe - API governance collector
//
// This is the main entry point for the Postman Probe service. It
// periodically pulls workspace, collection and user metadata from the
// Postman API, scores it against governance rules, stores results in a
// local SQLite database and serves them over a small HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jaredboynton/postman-probe-sub001/migrations"

	"github.com/jaredboynton/postman-probe-sub001/internal/api"
	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
	"github.com/jaredboynton/postman-probe-sub001/internal/collector"
	"github.com/jaredboynton/postman-probe-sub001/internal/governance"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/database"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/influxdb"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/logging"
	"github.com/jaredboynton/postman-probe-sub001/internal/postman"
	"github.com/jaredboynton/postman-probe-sub001/internal/snapshot"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error lets main handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded.
	log := logging.Default()
	log.Info("starting Postman Probe",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration (path resolution and env overrides happen
	// inside Load; CONFIG_PATH is honoured there).
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings.
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database.
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations.
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Postman API client.
	postmanClient := postman.New(cfg.Postman)

	// Governance engine.
	engine, err := governance.NewEngine(cfg.Governance)
	if err != nil {
		return fmt.Errorf("building governance engine: %w", err)
	}

	// Repositories.
	catalogRepo := catalog.NewSQLiteRepository(db.DB)
	resultsRepo := governance.NewSQLiteRepository(db.DB)
	snapshotRepo := snapshot.NewSQLiteRepository(db.DB)
	runRepo := collector.NewSQLiteRunRepository(db.DB)

	// Connect to InfluxDB (optional).
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB export disabled")
	}

	// Collector with cron schedule.
	probe := collector.New(
		cfg.Collection,
		postmanClient,
		catalogRepo,
		engine,
		resultsRepo,
		snapshotRepo,
		runRepo,
		influxClient,
		log,
	)
	if err := probe.Start(ctx); err != nil {
		return fmt.Errorf("starting collector: %w", err)
	}
	defer probe.Stop()

	// HTTP API server.
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Scores:    resultsRepo,
		Snapshots: snapshotRepo,
		Runs:      runRepo,
		Collector: probe,
		Database:  db,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify connections are healthy.
	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Collector
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("Postman Probe stopped")
	return nil
}

// healthCheck verifies infrastructure connections are healthy. The
// Postman API is deliberately not checked at startup; an unreachable
// API surfaces as a failed collection run, not a dead process.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
