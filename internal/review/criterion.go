// Package review implements the iterative quality gate that accepts,
// improves, or escalates agent output before it reaches downstream
// consumers. The loop is criteria-agnostic: concrete validation rules are
// injected as Criterion values, requirement extraction and coverage
// checking are pluggable, and production/remediation of output stays with
// the caller.
package review

import (
	"context"
	"fmt"

	"github.com/harrison/greenlight/internal/models"
)

// ValidateFunc inspects an output and returns a verdict. Implementations
// must be pure with respect to the output and honor context cancellation;
// errors and panics are converted to non-auto-fixable gaps by the loop.
type ValidateFunc func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *Context) (models.CriterionResult, error)

// Criterion is a single named validation rule with a severity/category tag.
// Criteria are immutable and stateless; a review run owns no criterion state.
type Criterion struct {
	ID          string
	Name        string
	Description string
	Severity    string
	Category    string
	Validate    ValidateFunc
}

// Extractor derives requirement strings from a request. Results are
// deduplicated; order is not significant.
type Extractor interface {
	Extract(ctx context.Context, req models.Request) ([]string, error)
}

// CoverageChecker determines whether the current output addresses one
// requirement, with a confidence value and free-text rationale.
type CoverageChecker interface {
	Check(ctx context.Context, requirement string, output *models.AgentOutput, rc *Context) (models.RequirementCoverage, error)
}

// Logger is implemented by loggers capable of reporting review progress.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// Recorder persists review results as they are produced. Recorder failures
// are reported as warnings and never interrupt a review.
type Recorder interface {
	Record(ctx context.Context, result *models.ReviewResult) error
}

func validateCriterion(c Criterion) error {
	if c.ID == "" {
		return fmt.Errorf("criterion requires an id")
	}
	if c.Validate == nil {
		return fmt.Errorf("criterion %s requires a validate function", c.ID)
	}
	if !models.ValidSeverity(c.Severity) {
		return fmt.Errorf("criterion %s has invalid severity %q", c.ID, c.Severity)
	}
	if !models.ValidCategory(c.Category) {
		return fmt.Errorf("criterion %s has invalid category %q", c.ID, c.Category)
	}
	return nil
}
