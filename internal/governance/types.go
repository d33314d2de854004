package governance

import "time"

// Rule categories. Each rule belongs to exactly one category and the
// category weights in config.yaml decide its contribution to the
// overall score.
const (
	CategoryDocumentation = "documentation"
	CategoryNaming        = "naming"
	CategoryTagging       = "tagging"
	CategoryOrganization  = "organization"
)

// Violation severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Violation is a single rule failure against one entity.
type Violation struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Rule       string    `json:"rule"`
	Category   string    `json:"category"`
	Severity   string    `json:"severity"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Score is the compliance result of one collection run.
type Score struct {
	ID         string             `json:"id"`
	RunID      string             `json:"run_id"`
	Overall    float64            `json:"overall"`
	Categories map[string]float64 `json:"categories"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Report is the full output of one engine evaluation.
type Report struct {
	Score      Score       `json:"score"`
	Violations []Violation `json:"violations"`
}
