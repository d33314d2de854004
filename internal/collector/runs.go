package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run triggers.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one collection run, successful or not.
type Run struct {
	ID           string    `json:"id"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	Workspaces   int       `json:"workspaces"`
	Collections  int       `json:"collections"`
	Users        int       `json:"users"`
	Violations   int       `json:"violations"`
	OverallScore *float64  `json:"overall_score,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunRepository persists the collection run history.
type RunRepository interface {
	Record(ctx context.Context, run *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Latest(ctx context.Context) (*Run, error)
}

// ErrNoRuns is returned by Latest when no run has been recorded yet.
var ErrNoRuns = errors.New("no collection runs recorded")

// SQLiteRunRepository stores run history in SQLite.
type SQLiteRunRepository struct {
	db *sql.DB
}

// NewSQLiteRunRepository creates a new run history repository.
func NewSQLiteRunRepository(db *sql.DB) *SQLiteRunRepository {
	return &SQLiteRunRepository{db: db}
}

// Record inserts a run row. ID and CreatedAt are generated when empty.
func (r *SQLiteRunRepository) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()[:8]
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var score any
	if run.OverallScore != nil {
		score = *run.OverallScore
	}
	var errText any
	if run.Error != "" {
		errText = run.Error
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collection_runs (id, "trigger", status, workspaces, collections, users, violations, overall_score, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, run.Status,
		run.Workspaces, run.Collections, run.Users, run.Violations,
		score, errText, run.DurationMS,
		run.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting collection run: %w", err)
	}
	return nil
}

// List returns up to limit runs, most recent first.
func (r *SQLiteRunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 { //nolint:mnd // max page size
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, "trigger", status, workspaces, collections, users, violations, overall_score, error, duration_ms, created_at
		 FROM collection_runs ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run, or ErrNoRuns when none exists.
func (r *SQLiteRunRepository) Latest(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, "trigger", status, workspaces, collections, users, violations, overall_score, error, duration_ms, created_at
		 FROM collection_runs ORDER BY created_at DESC, id DESC LIMIT 1`,
	)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// scanTarget is satisfied by *sql.Row and *sql.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanRun(row scanTarget) (*Run, error) {
	var run Run
	var score sql.NullFloat64
	var errText sql.NullString
	var createdAt string

	if err := row.Scan(&run.ID, &run.Trigger, &run.Status,
		&run.Workspaces, &run.Collections, &run.Users, &run.Violations,
		&score, &errText, &run.DurationMS, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning collection run: %w", err)
	}

	if score.Valid {
		run.OverallScore = &score.Float64
	}
	if errText.Valid {
		run.Error = errText.String
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run timestamp %q: %w", createdAt, err)
	}
	run.CreatedAt = t

	return &run, nil
}
