package governance

import (
	"math"
	"testing"

	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(config.GovernanceConfig{
		Weights: map[string]float64{
			CategoryDocumentation: 0.3,
			CategoryNaming:        0.2,
			CategoryTagging:       0.2,
			CategoryOrganization:  0.3,
		},
		Rules: config.RulesConfig{
			NamingPattern:        `^[A-Z][A-Za-z0-9 ._-]*$`,
			MinDescriptionLength: 10,
		},
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestNewEngine_InvalidPattern(t *testing.T) {
	_, err := NewEngine(config.GovernanceConfig{
		Rules: config.RulesConfig{NamingPattern: "("},
	})
	if err == nil {
		t.Error("expected error for invalid naming pattern")
	}
}

func TestEngine_EmptyInventoryScoresFullCompliance(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.Evaluate("run-1", nil, nil)

	if report.Score.Overall != 1.0 {
		t.Errorf("Overall = %v, want 1.0", report.Score.Overall)
	}
	for category, score := range report.Score.Categories {
		if score != 1.0 {
			t.Errorf("category %s = %v, want 1.0", category, score)
		}
	}
	if len(report.Violations) != 0 {
		t.Errorf("got %d violations, want 0", len(report.Violations))
	}
}

func TestEngine_FullyCompliantCollection(t *testing.T) {
	engine := newTestEngine(t)

	workspaces := []catalog.Workspace{{ID: "ws-1", Name: "Platform", Type: "team"}}
	collections := []catalog.Collection{{
		ID:          "col-1",
		WorkspaceID: "ws-1",
		Name:        "Orders API",
		Description: "Order lifecycle endpoints for the storefront",
		Tags:        []string{"orders"},
	}}

	report := engine.Evaluate("run-1", collections, workspaces)

	if report.Score.Overall != 1.0 {
		t.Errorf("Overall = %v, want 1.0", report.Score.Overall)
	}
	if len(report.Violations) != 0 {
		t.Errorf("unexpected violations: %+v", report.Violations)
	}
}

func TestEngine_RuleViolations(t *testing.T) {
	tests := []struct {
		name         string
		collection   catalog.Collection
		wantRule     string
		wantCategory string
		wantSeverity string
	}{
		{
			name: "missing description",
			collection: catalog.Collection{
				ID: "col-1", WorkspaceID: "ws-1", Name: "Orders API",
				Tags: []string{"orders"},
			},
			wantRule:     "collection_description",
			wantCategory: CategoryDocumentation,
			wantSeverity: SeverityWarning,
		},
		{
			name: "short description",
			collection: catalog.Collection{
				ID: "col-1", WorkspaceID: "ws-1", Name: "Orders API",
				Description: "short", Tags: []string{"orders"},
			},
			wantRule:     "collection_description",
			wantCategory: CategoryDocumentation,
			wantSeverity: SeverityWarning,
		},
		{
			name: "lowercase name",
			collection: catalog.Collection{
				ID: "col-1", WorkspaceID: "ws-1", Name: "orders api",
				Description: "Order lifecycle endpoints", Tags: []string{"orders"},
			},
			wantRule:     "collection_naming",
			wantCategory: CategoryNaming,
			wantSeverity: SeverityWarning,
		},
		{
			name: "no tags",
			collection: catalog.Collection{
				ID: "col-1", WorkspaceID: "ws-1", Name: "Orders API",
				Description: "Order lifecycle endpoints",
			},
			wantRule:     "collection_tags",
			wantCategory: CategoryTagging,
			wantSeverity: SeverityInfo,
		},
		{
			name: "no workspace",
			collection: catalog.Collection{
				ID: "col-1", Name: "Orders API",
				Description: "Order lifecycle endpoints", Tags: []string{"orders"},
			},
			wantRule:     "collection_workspace",
			wantCategory: CategoryOrganization,
			wantSeverity: SeverityError,
		},
		{
			name: "unknown workspace",
			collection: catalog.Collection{
				ID: "col-1", WorkspaceID: "ws-gone", Name: "Orders API",
				Description: "Order lifecycle endpoints", Tags: []string{"orders"},
			},
			wantRule:     "collection_workspace",
			wantCategory: CategoryOrganization,
			wantSeverity: SeverityError,
		},
	}

	workspaces := []catalog.Workspace{{ID: "ws-1", Name: "Platform", Type: "team"}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t)
			report := engine.Evaluate("run-1", []catalog.Collection{tt.collection}, workspaces)

			if len(report.Violations) != 1 {
				t.Fatalf("got %d violations, want 1: %+v", len(report.Violations), report.Violations)
			}
			v := report.Violations[0]
			if v.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", v.Rule, tt.wantRule)
			}
			if v.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", v.Category, tt.wantCategory)
			}
			if v.Severity != tt.wantSeverity {
				t.Errorf("Severity = %q, want %q", v.Severity, tt.wantSeverity)
			}
			if v.RunID != "run-1" {
				t.Errorf("RunID = %q, want run-1", v.RunID)
			}
			if v.EntityID != "col-1" || v.EntityType != "collection" {
				t.Errorf("entity = %s/%s, want collection/col-1", v.EntityType, v.EntityID)
			}
			if report.Score.Categories[tt.wantCategory] != 0 {
				t.Errorf("category score = %v, want 0", report.Score.Categories[tt.wantCategory])
			}
		})
	}
}

func TestEngine_WeightedOverall(t *testing.T) {
	engine := newTestEngine(t)

	// One of two collections fails documentation and tagging; everything
	// else passes. documentation=0.5, naming=1, tagging=0.5, organization=1.
	workspaces := []catalog.Workspace{{ID: "ws-1", Name: "Platform", Type: "team"}}
	collections := []catalog.Collection{
		{
			ID: "col-1", WorkspaceID: "ws-1", Name: "Orders API",
			Description: "Order lifecycle endpoints", Tags: []string{"orders"},
		},
		{
			ID: "col-2", WorkspaceID: "ws-1", Name: "Billing API",
		},
	}

	report := engine.Evaluate("run-1", collections, workspaces)

	want := 0.3*0.5 + 0.2*1 + 0.2*0.5 + 0.3*1
	if math.Abs(report.Score.Overall-want) > 1e-9 {
		t.Errorf("Overall = %v, want %v", report.Score.Overall, want)
	}
	if len(report.Violations) != 2 {
		t.Errorf("got %d violations, want 2", len(report.Violations))
	}
}

func TestEngine_UnconfiguredCategoryIgnored(t *testing.T) {
	engine, err := NewEngine(config.GovernanceConfig{
		Weights: map[string]float64{CategoryDocumentation: 1.0},
		Rules: config.RulesConfig{
			NamingPattern:        `^[A-Z]`,
			MinDescriptionLength: 10,
		},
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	// Fails naming and tagging, but only documentation is weighted.
	collections := []catalog.Collection{{
		ID: "col-1", WorkspaceID: "ws-1", Name: "orders",
		Description: "Order lifecycle endpoints",
	}}
	workspaces := []catalog.Workspace{{ID: "ws-1", Name: "Platform", Type: "team"}}

	report := engine.Evaluate("run-1", collections, workspaces)

	if report.Score.Overall != 1.0 {
		t.Errorf("Overall = %v, want 1.0 (only documentation weighted)", report.Score.Overall)
	}
}
