package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
)

// Snapshot is one point in the compliance time series.
type Snapshot struct {
	ID         int64              `json:"id"`
	RunID      string             `json:"run_id"`
	Overall    float64            `json:"overall"`
	Categories map[string]float64 `json:"categories"`
	Counts     catalog.Counts     `json:"counts"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Filter controls which snapshots to return.
type Filter struct {
	Since time.Time // optional: only snapshots at or after this time
	Limit int       // default 100, max 1000
}

// Repository persists the compliance time series.
type Repository interface {
	Record(ctx context.Context, snap *Snapshot) error
	List(ctx context.Context, filter Filter) ([]Snapshot, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteRepository stores snapshots in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new snapshot repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record appends a snapshot. CreatedAt defaults to now and the
// generated row ID is written back to snap.
func (r *SQLiteRepository) Record(ctx context.Context, snap *Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	categoriesJSON, err := json.Marshal(snap.Categories)
	if err != nil {
		return fmt.Errorf("marshalling category scores: %w", err)
	}
	countsJSON, err := json.Marshal(snap.Counts)
	if err != nil {
		return fmt.Errorf("marshalling counts: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, overall, categories, counts, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.RunID, snap.Overall, string(categoriesJSON), string(countsJSON),
		snap.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

// List returns snapshots matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Snapshot, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 { //nolint:mnd // max page size for time-series queries
		filter.Limit = 1000
	}

	query := `SELECT id, run_id, overall, categories, counts, created_at
		 FROM snapshots`
	var args []any
	if !filter.Since.IsZero() {
		query += " WHERE created_at >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		var categoriesJSON, countsJSON, createdAt string
		if err := rows.Scan(&snap.ID, &snap.RunID, &snap.Overall,
			&categoriesJSON, &countsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(categoriesJSON), &snap.Categories); err != nil {
			return nil, fmt.Errorf("decoding category scores: %w", err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &snap.Counts); err != nil {
			return nil, fmt.Errorf("decoding counts: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing snapshot timestamp %q: %w", createdAt, err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Prune deletes snapshots created before olderThan and returns the
// number of rows removed.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE created_at < ?",
		olderThan.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned snapshots: %w", err)
	}
	return removed, nil
}
