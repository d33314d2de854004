package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines inventory persistence operations.
type Repository interface {
	UpsertWorkspace(ctx context.Context, ws *Workspace) error
	UpsertCollection(ctx context.Context, col *Collection) error
	UpsertUser(ctx context.Context, user *User) error
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	ListCollections(ctx context.Context) ([]Collection, error)
	ListUsers(ctx context.Context) ([]User, error)
	Counts(ctx context.Context) (Counts, error)
}

// SQLiteRepository stores the inventory in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new inventory repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertWorkspace inserts or replaces a workspace row. UpdatedAt is set
// to now when zero.
func (r *SQLiteRepository) UpsertWorkspace(ctx context.Context, ws *Workspace) error {
	if ws.ID == "" {
		return fmt.Errorf("workspace id is required")
	}
	if ws.UpdatedAt.IsZero() {
		ws.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, type, description, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   type = excluded.type,
		   description = excluded.description,
		   updated_at = excluded.updated_at`,
		ws.ID, ws.Name, ws.Type, nullableString(ws.Description),
		ws.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting workspace: %w", err)
	}
	return nil
}

// UpsertCollection inserts or replaces a collection row.
func (r *SQLiteRepository) UpsertCollection(ctx context.Context, col *Collection) error {
	if col.ID == "" {
		return fmt.Errorf("collection id is required")
	}
	if col.UpdatedAt.IsZero() {
		col.UpdatedAt = time.Now().UTC()
	}

	var tagsJSON *string
	if len(col.Tags) > 0 {
		b, err := json.Marshal(col.Tags)
		if err != nil {
			return fmt.Errorf("marshalling collection tags: %w", err)
		}
		s := string(b)
		tagsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (id, workspace_id, name, description, tags, fork_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   workspace_id = excluded.workspace_id,
		   name = excluded.name,
		   description = excluded.description,
		   tags = excluded.tags,
		   fork_count = excluded.fork_count,
		   updated_at = excluded.updated_at`,
		col.ID, nullableString(col.WorkspaceID), col.Name,
		nullableString(col.Description), tagsJSON, col.ForkCount,
		col.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting collection: %w", err)
	}
	return nil
}

// UpsertUser inserts or replaces a user row.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, role, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   username = excluded.username,
		   email = excluded.email,
		   role = excluded.role,
		   updated_at = excluded.updated_at`,
		user.ID, user.Username, nullableString(user.Email),
		nullableString(user.Role), user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// ListWorkspaces returns all workspaces ordered by name.
func (r *SQLiteRepository) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, type, description, updated_at FROM workspaces ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []Workspace
	for rows.Next() {
		var ws Workspace
		var description sql.NullString
		var updatedAt string
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Type, &description, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		if description.Valid {
			ws.Description = description.String
		}
		if ws.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return workspaces, nil
}

// ListCollections returns all collections ordered by name.
func (r *SQLiteRepository) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, description, tags, fork_count, updated_at
		 FROM collections ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		var col Collection
		var workspaceID, description, tagsJSON sql.NullString
		var updatedAt string
		if err := rows.Scan(&col.ID, &workspaceID, &col.Name, &description,
			&tagsJSON, &col.ForkCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		if workspaceID.Valid {
			col.WorkspaceID = workspaceID.String
		}
		if description.Valid {
			col.Description = description.String
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			// Tags are stored by us; a decode failure just leaves them empty.
			_ = json.Unmarshal([]byte(tagsJSON.String), &col.Tags)
		}
		if col.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return collections, nil
}

// ListUsers returns all users ordered by username.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, email, role, updated_at FROM users ORDER BY username",
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		var email, role sql.NullString
		var updatedAt string
		if err := rows.Scan(&user.ID, &user.Username, &email, &role, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if email.Valid {
			user.Email = email.String
		}
		if role.Valid {
			user.Role = role.String
		}
		if user.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Counts returns inventory row counts for snapshots and run records.
func (r *SQLiteRepository) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM workspaces),
			(SELECT COUNT(*) FROM collections),
			(SELECT COUNT(*) FROM users)
	`)
	if err := row.Scan(&counts.Workspaces, &counts.Collections, &counts.Users); err != nil {
		return Counts{}, fmt.Errorf("counting inventory: %w", err)
	}
	return counts, nil
}

// nullableString returns nil for empty strings, for nullable TEXT columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// parseTimestamp parses a timestamp stored by this repository.
func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return t, nil
}
