package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/database"
	_ "github.com/jaredboynton/postman-probe-sub001/migrations" // register embedded schema
)

func TestMigrate_AppliesSchema(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "probe.db"),
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{
		"workspaces", "collections", "users",
		"scores", "violations", "snapshots", "collection_runs",
	} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "probe.db"),
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) == 0 {
		t.Error("expected at least one applied migration")
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(pending))
	}
}

func TestMigrateDown_RollsBackLatest(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "probe.db"),
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='workspaces'",
	).Scan(&name)
	if err == nil {
		t.Error("expected workspaces table to be dropped after rollback")
	}
}
