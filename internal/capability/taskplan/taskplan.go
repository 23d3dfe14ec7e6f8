// Package taskplan reviews structured task plans: work item dependency
// graphs must stay acyclic, and every item should carry acceptance
// criteria and an effort estimate.
package taskplan

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/greenlight/internal/models"
	"github.com/harrison/greenlight/internal/requirements"
	"github.com/harrison/greenlight/internal/review"
)

// Agent is the ID this capability set registers under.
const Agent = "taskplan"

// implicitRequirements maps description keywords to requirements a plan is
// expected to cover even when the request never states them.
var implicitRequirements = []struct {
	trigger string
	implied []string
}{
	{"login", []string{
		"Password visibility toggle",
		"Forgot password link",
		"Error message display",
	}},
}

// Criteria returns the task-plan criteria in evaluation order.
func Criteria() []review.Criterion {
	return []review.Criterion{
		CycleCriterion(),
		AcceptanceCriteriaCriterion(),
		EstimateCriterion(),
	}
}

// NewExtractor returns a requirement extractor with the task-plan implicit
// hook installed.
func NewExtractor() *requirements.TextExtractor {
	e := requirements.NewTextExtractor()
	e.Implicit = func(description string) []string {
		lower := strings.ToLower(description)
		var implied []string
		for _, entry := range implicitRequirements {
			if strings.Contains(lower, entry.trigger) {
				implied = append(implied, entry.implied...)
			}
		}
		return implied
	}
	return e
}

// NewCoverage returns the coverage checker for structured plans.
func NewCoverage() review.CoverageChecker {
	return requirements.NewWorkItemCoverage()
}

// CycleCriterion rejects plans whose dependency graph contains a cycle and
// reports the exact cycle path.
func CycleCriterion() review.Criterion {
	return review.Criterion{
		ID:          "taskplan.cycles",
		Name:        "dependency cycles",
		Description: "work item dependencies must form a directed acyclic graph",
		Severity:    models.SeverityCritical,
		Category:    models.CategoryIncorrect,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			if output == nil || len(output.Items) == 0 {
				return models.CriterionResult{Passed: true, Score: 1, Details: "no work items to validate"}, nil
			}

			cycle := models.FindDependencyCycle(output.Items)
			if cycle == nil {
				return models.CriterionResult{
					Passed:  true,
					Score:   1,
					Details: fmt.Sprintf("%d work items, no dependency cycles", len(output.Items)),
				}, nil
			}

			path := strings.Join(cycle, " -> ")
			return models.CriterionResult{
				Passed:       false,
				Score:        0,
				Details:      fmt.Sprintf("dependency cycle: %s", path),
				SuggestedFix: fmt.Sprintf("remove one dependency along %s", path),
				Effort:       models.EffortSmall,
			}, nil
		},
	}
}

// AcceptanceCriteriaCriterion scores the fraction of work items carrying
// acceptance criteria.
func AcceptanceCriteriaCriterion() review.Criterion {
	return review.Criterion{
		ID:          "taskplan.acceptance-criteria",
		Name:        "acceptance criteria",
		Description: "every work item should state how it will be verified",
		Severity:    models.SeverityMajor,
		Category:    models.CategoryIncomplete,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			return ratioResult(output, "acceptance criteria", func(item models.WorkItem) bool {
				return len(item.AcceptanceCriteria) > 0
			}, models.EffortMedium)
		},
	}
}

// EstimateCriterion scores the fraction of work items carrying an effort
// estimate.
func EstimateCriterion() review.Criterion {
	return review.Criterion{
		ID:          "taskplan.estimates",
		Name:        "effort estimates",
		Description: "every work item should carry an effort estimate",
		Severity:    models.SeverityMinor,
		Category:    models.CategoryQuality,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			return ratioResult(output, "an estimate", func(item models.WorkItem) bool {
				return strings.TrimSpace(item.Estimate) != ""
			}, models.EffortTrivial)
		},
	}
}

// ratioResult scores items satisfying a predicate over the total item
// count. Plans without items pass vacuously.
func ratioResult(output *models.AgentOutput, what string, ok func(models.WorkItem) bool, effort string) (models.CriterionResult, error) {
	if output == nil || len(output.Items) == 0 {
		return models.CriterionResult{Passed: true, Score: 1, Details: "no work items to validate"}, nil
	}

	var missing []string
	for _, item := range output.Items {
		if !ok(item) {
			missing = append(missing, item.ID)
		}
	}

	total := len(output.Items)
	satisfied := total - len(missing)
	score := float64(satisfied) / float64(total)

	if len(missing) == 0 {
		return models.CriterionResult{
			Passed:  true,
			Score:   1,
			Details: fmt.Sprintf("all %d work items carry %s", total, what),
		}, nil
	}

	return models.CriterionResult{
		Passed:       false,
		Score:        score,
		Details:      fmt.Sprintf("%d of %d work items carry %s", satisfied, total, what),
		SuggestedFix: fmt.Sprintf("add %s to: %s", what, strings.Join(missing, ", ")),
		Effort:       effort,
	}, nil
}
