package governance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoScores is returned when no collection run has completed yet.
var ErrNoScores = errors.New("no scores recorded")

// ViolationFilter controls which violations to return.
type ViolationFilter struct {
	RunID    string // optional: filter by run
	Category string // optional: documentation, naming, tagging, organization
	Severity string // optional: error, warning, info
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ViolationList contains paginated violation results.
type ViolationList struct {
	Violations []Violation `json:"violations"`
	Total      int         `json:"total"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// Repository persists governance evaluation results.
type Repository interface {
	SaveReport(ctx context.Context, report *Report) error
	LatestScore(ctx context.Context) (*Score, error)
	ListScores(ctx context.Context, limit int) ([]Score, error)
	ListViolations(ctx context.Context, filter ViolationFilter) (*ViolationList, error)
}

// SQLiteRepository stores scores and violations in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new governance results repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveReport writes the score and its violations in one transaction.
// IDs and CreatedAt are generated when empty.
func (r *SQLiteRepository) SaveReport(ctx context.Context, report *Report) error {
	now := time.Now().UTC()

	score := &report.Score
	if score.ID == "" {
		score.ID = "score-" + uuid.NewString()[:8]
	}
	if score.CreatedAt.IsZero() {
		score.CreatedAt = now
	}

	categoriesJSON, err := json.Marshal(score.Categories)
	if err != nil {
		return fmt.Errorf("marshalling category scores: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores (id, run_id, overall, categories, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		score.ID, score.RunID, score.Overall, string(categoriesJSON),
		score.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}

	for i := range report.Violations {
		v := &report.Violations[i]
		if v.ID == "" {
			v.ID = "vio-" + uuid.NewString()[:8]
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO violations (id, run_id, rule, category, severity, entity_type, entity_id, entity_name, message, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.RunID, v.Rule, v.Category, v.Severity,
			v.EntityType, v.EntityID, nullableString(v.EntityName), v.Message,
			v.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting violation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

// LatestScore returns the most recent score, or ErrNoScores when none
// has been recorded.
func (r *SQLiteRepository) LatestScore(ctx context.Context) (*Score, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, run_id, overall, categories, created_at
		 FROM scores ORDER BY created_at DESC, id DESC LIMIT 1`,
	)

	score, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoScores
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}

// ListScores returns up to limit scores, most recent first.
func (r *SQLiteRepository) ListScores(ctx context.Context, limit int) ([]Score, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 { //nolint:mnd // max page size
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_id, overall, categories, created_at
		 FROM scores ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer rows.Close()

	scores := []Score{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scores: %w", err)
	}
	return scores, nil
}

// ListViolations returns violations matching the filter, most recent
// first.
func (r *SQLiteRepository) ListViolations(ctx context.Context, filter ViolationFilter) (*ViolationList, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, filter.Severity)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM violations %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting violations: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, run_id, rule, category, severity, entity_type, entity_id, entity_name, message, created_at
		 FROM violations %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying violations: %w", err)
	}
	defer rows.Close()

	violations := []Violation{}
	for rows.Next() {
		var v Violation
		var entityName sql.NullString
		var createdAt string
		if err := rows.Scan(&v.ID, &v.RunID, &v.Rule, &v.Category, &v.Severity,
			&v.EntityType, &v.EntityID, &entityName, &v.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning violation: %w", err)
		}
		if entityName.Valid {
			v.EntityName = entityName.String
		}
		if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing violation timestamp %q: %w", createdAt, err)
		}
		violations = append(violations, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating violations: %w", err)
	}

	return &ViolationList{
		Violations: violations,
		Total:      total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// scanTarget is satisfied by *sql.Row and *sql.Rows.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanScore(row scanTarget) (*Score, error) {
	var score Score
	var categoriesJSON, createdAt string
	if err := row.Scan(&score.ID, &score.RunID, &score.Overall, &categoriesJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning score: %w", err)
	}

	if err := json.Unmarshal([]byte(categoriesJSON), &score.Categories); err != nil {
		return nil, fmt.Errorf("decoding category scores: %w", err)
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing score timestamp %q: %w", createdAt, err)
	}
	score.CreatedAt = t

	return &score, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
