package governance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jaredboynton/postman-probe-sub001/internal/catalog"
	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
)

// Engine evaluates the local inventory against the governance rules.
// It is pure: Evaluate reads its inputs and returns a report without
// touching storage or the network.
type Engine struct {
	weights       map[string]float64
	namingPattern *regexp.Regexp
	minDescLength int
}

// NewEngine builds an Engine from the governance config section. The
// naming pattern has already passed config validation; a compile
// failure here means the config was bypassed, so it is returned as an
// error rather than a panic.
func NewEngine(cfg config.GovernanceConfig) (*Engine, error) {
	pattern, err := regexp.Compile(cfg.Rules.NamingPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling naming pattern: %w", err)
	}

	weights := make(map[string]float64, len(cfg.Weights))
	for category, weight := range cfg.Weights {
		weights[category] = weight
	}

	return &Engine{
		weights:       weights,
		namingPattern: pattern,
		minDescLength: cfg.Rules.MinDescriptionLength,
	}, nil
}

// Evaluate runs every rule over the inventory and produces the score
// and violations for runID. Category scores are the fraction of
// collections passing that category's rule; an empty inventory scores
// 1.0 everywhere. The overall score is the weight-sum of the configured
// categories only.
func (e *Engine) Evaluate(runID string, collections []catalog.Collection, workspaces []catalog.Workspace) *Report {
	known := make(map[string]struct{}, len(workspaces))
	for _, ws := range workspaces {
		known[ws.ID] = struct{}{}
	}

	compliant := map[string]int{
		CategoryDocumentation: 0,
		CategoryNaming:        0,
		CategoryTagging:       0,
		CategoryOrganization:  0,
	}

	var violations []Violation
	record := func(v Violation) {
		v.RunID = runID
		violations = append(violations, v)
	}

	for _, col := range collections {
		if e.checkDocumentation(col, record) {
			compliant[CategoryDocumentation]++
		}
		if e.checkNaming(col, record) {
			compliant[CategoryNaming]++
		}
		if e.checkTagging(col, record) {
			compliant[CategoryTagging]++
		}
		if e.checkOrganization(col, known, record) {
			compliant[CategoryOrganization]++
		}
	}

	categories := make(map[string]float64, len(compliant))
	for category, passed := range compliant {
		if len(collections) == 0 {
			categories[category] = 1.0
			continue
		}
		categories[category] = float64(passed) / float64(len(collections))
	}

	var overall float64
	for category, weight := range e.weights {
		score, ok := categories[category]
		if !ok {
			// Unknown weight categories score as fully compliant so a
			// config typo surfaces as an inflated score, not a crash.
			score = 1.0
		}
		overall += weight * score
	}

	return &Report{
		Score: Score{
			RunID:      runID,
			Overall:    overall,
			Categories: categories,
		},
		Violations: violations,
	}
}

func (e *Engine) checkDocumentation(col catalog.Collection, record func(Violation)) bool {
	desc := strings.TrimSpace(col.Description)
	if len(desc) >= e.minDescLength {
		return true
	}

	message := fmt.Sprintf("collection %q has no description", col.Name)
	if desc != "" {
		message = fmt.Sprintf("collection %q description is under %d characters", col.Name, e.minDescLength)
	}
	record(Violation{
		Rule:       "collection_description",
		Category:   CategoryDocumentation,
		Severity:   SeverityWarning,
		EntityType: "collection",
		EntityID:   col.ID,
		EntityName: col.Name,
		Message:    message,
	})
	return false
}

func (e *Engine) checkNaming(col catalog.Collection, record func(Violation)) bool {
	if e.namingPattern.MatchString(col.Name) {
		return true
	}

	record(Violation{
		Rule:       "collection_naming",
		Category:   CategoryNaming,
		Severity:   SeverityWarning,
		EntityType: "collection",
		EntityID:   col.ID,
		EntityName: col.Name,
		Message:    fmt.Sprintf("collection name %q does not match the naming convention", col.Name),
	})
	return false
}

func (e *Engine) checkTagging(col catalog.Collection, record func(Violation)) bool {
	if len(col.Tags) > 0 {
		return true
	}

	record(Violation{
		Rule:       "collection_tags",
		Category:   CategoryTagging,
		Severity:   SeverityInfo,
		EntityType: "collection",
		EntityID:   col.ID,
		EntityName: col.Name,
		Message:    fmt.Sprintf("collection %q has no tags", col.Name),
	})
	return false
}

func (e *Engine) checkOrganization(col catalog.Collection, known map[string]struct{}, record func(Violation)) bool {
	if col.WorkspaceID != "" {
		if _, ok := known[col.WorkspaceID]; ok {
			return true
		}
	}

	record(Violation{
		Rule:       "collection_workspace",
		Category:   CategoryOrganization,
		Severity:   SeverityError,
		EntityType: "collection",
		EntityID:   col.ID,
		EntityName: col.Name,
		Message:    fmt.Sprintf("collection %q is not in any known workspace", col.Name),
	})
	return false
}
