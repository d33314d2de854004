package governance

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/database"
	_ "github.com/jaredboynton/postman-probe-sub001/migrations"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "probe.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db.DB
}

func sampleReport(runID string, overall float64) *Report {
	return &Report{
		Score: Score{
			RunID:   runID,
			Overall: overall,
			Categories: map[string]float64{
				CategoryDocumentation: overall,
				CategoryNaming:        1.0,
			},
		},
		Violations: []Violation{
			{
				RunID:      runID,
				Rule:       "collection_description",
				Category:   CategoryDocumentation,
				Severity:   SeverityWarning,
				EntityType: "collection",
				EntityID:   "col-1",
				EntityName: "Orders API",
				Message:    `collection "Orders API" has no description`,
			},
			{
				RunID:      runID,
				Rule:       "collection_workspace",
				Category:   CategoryOrganization,
				Severity:   SeverityError,
				EntityType: "collection",
				EntityID:   "col-2",
				Message:    `collection "scratch" is not in any known workspace`,
			},
		},
	}
}

func TestSQLiteRepository_SaveReportAndLatestScore(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	report := sampleReport("run-1", 0.75)
	if err := repo.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if report.Score.ID == "" {
		t.Error("expected score ID to be generated")
	}
	for _, v := range report.Violations {
		if v.ID == "" {
			t.Error("expected violation ID to be generated")
		}
	}

	score, err := repo.LatestScore(ctx)
	if err != nil {
		t.Fatalf("LatestScore() error = %v", err)
	}
	if score.RunID != "run-1" || score.Overall != 0.75 {
		t.Errorf("unexpected score: %+v", score)
	}
	if score.Categories[CategoryDocumentation] != 0.75 {
		t.Errorf("Categories = %v", score.Categories)
	}
	if score.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be populated")
	}
}

func TestSQLiteRepository_LatestScoreEmpty(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))

	_, err := repo.LatestScore(context.Background())
	if !errors.Is(err, ErrNoScores) {
		t.Errorf("error = %v, want ErrNoScores", err)
	}
}

func TestSQLiteRepository_ListScoresOrdersRecentFirst(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, runID := range []string{"run-1", "run-2", "run-3"} {
		report := sampleReport(runID, float64(i)/10)
		report.Score.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := repo.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport(%s) error = %v", runID, err)
		}
	}

	scores, err := repo.ListScores(ctx, 2)
	if err != nil {
		t.Fatalf("ListScores() error = %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}
	if scores[0].RunID != "run-3" || scores[1].RunID != "run-2" {
		t.Errorf("unexpected order: %s, %s", scores[0].RunID, scores[1].RunID)
	}
}

func TestSQLiteRepository_ListViolationsFilters(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.SaveReport(ctx, sampleReport("run-1", 0.5)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := repo.SaveReport(ctx, sampleReport("run-2", 0.5)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	tests := []struct {
		name      string
		filter    ViolationFilter
		wantTotal int
	}{
		{"no filter", ViolationFilter{}, 4},
		{"by run", ViolationFilter{RunID: "run-1"}, 2},
		{"by category", ViolationFilter{Category: CategoryOrganization}, 2},
		{"by severity", ViolationFilter{Severity: SeverityWarning}, 2},
		{"combined", ViolationFilter{RunID: "run-1", Severity: SeverityError}, 1},
		{"no match", ViolationFilter{Category: CategoryTagging}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.ListViolations(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListViolations() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
			if len(result.Violations) != tt.wantTotal {
				t.Errorf("got %d violations, want %d", len(result.Violations), tt.wantTotal)
			}
		})
	}
}

func TestSQLiteRepository_ListViolationsPagination(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))
	ctx := context.Background()

	if err := repo.SaveReport(ctx, sampleReport("run-1", 0.5)); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	page, err := repo.ListViolations(ctx, ViolationFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2", page.Total)
	}
	if len(page.Violations) != 1 {
		t.Errorf("got %d violations, want 1", len(page.Violations))
	}
	if page.Limit != 1 || page.Offset != 1 {
		t.Errorf("page = limit %d offset %d", page.Limit, page.Offset)
	}
}

func TestSQLiteRepository_ListViolationsEmptyIsNotNil(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))

	result, err := repo.ListViolations(context.Background(), ViolationFilter{})
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if result.Violations == nil {
		t.Error("expected empty slice, got nil")
	}
}
