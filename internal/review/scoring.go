package review

import (
	"fmt"

	"github.com/harrison/greenlight/internal/models"
)

// Weights for the composite quality score. Criteria compliance and
// requirement completeness matter equally and twice as much as the
// incorrectness ratio, which is already captured indirectly inside gaps.
const (
	weightCriteria     = 0.4
	weightCompleteness = 0.4
	weightCorrectness  = 0.2
)

// Scores holds the three component metrics and their weighted combination
// for one review iteration. All values are in [0,1].
type Scores struct {
	Criteria     float64
	Completeness float64
	Correctness  float64
	Quality      float64
}

// ScoreIteration folds criterion results, requirement coverage, and gaps
// into the iteration's scores. Empty inputs are vacuously satisfied: no
// criteria scores 1, no evaluated requirements scores 1, no gaps scores 1.
// The coverage slice must contain only requirements whose check succeeded;
// failed checks are excluded from both numerator and denominator.
func ScoreIteration(results []models.CriterionResult, coverage []models.RequirementCoverage, gaps []models.Gap) Scores {
	s := Scores{Criteria: 1, Completeness: 1, Correctness: 1}

	if len(results) > 0 {
		var sum float64
		for _, r := range results {
			sum += clamp01(r.Score)
		}
		s.Criteria = sum / float64(len(results))
	}

	if len(coverage) > 0 {
		covered := 0
		for _, c := range coverage {
			if c.Covered {
				covered++
			}
		}
		s.Completeness = float64(covered) / float64(len(coverage))
	}

	if len(gaps) > 0 {
		incorrect := 0
		for _, g := range gaps {
			if g.Category == models.CategoryIncorrect {
				incorrect++
			}
		}
		s.Correctness = 1 - float64(incorrect)/float64(len(gaps))
	}

	s.Quality = weightCriteria*s.Criteria + weightCompleteness*s.Completeness + weightCorrectness*s.Correctness
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// gapForFailedCriterion builds the gap recorded when a criterion returns
// a failing verdict. Severity and category come from the criterion; the
// fix falls back to the criterion's static description and the effort to
// medium when the result leaves them unspecified.
func gapForFailedCriterion(crit Criterion, res models.CriterionResult) models.Gap {
	desc := res.Details
	if desc == "" {
		desc = fmt.Sprintf("criterion %s failed", crit.Name)
	}
	fix := res.SuggestedFix
	if fix == "" {
		fix = crit.Description
	}
	effort := res.Effort
	if effort == "" {
		effort = models.EffortMedium
	}
	return models.Gap{
		ID:           models.NewID(),
		Severity:     crit.Severity,
		Category:     crit.Category,
		Description:  desc,
		SuggestedFix: fix,
		Effort:       effort,
		AutoFixable:  true,
	}
}

// gapForCriterionError builds the gap recorded when a criterion errors or
// panics instead of returning a verdict. Such gaps are never auto-fixable:
// the remediation callback cannot act on a rule that could not run.
func gapForCriterionError(crit Criterion, err error) models.Gap {
	return models.Gap{
		ID:           models.NewID(),
		Severity:     crit.Severity,
		Category:     crit.Category,
		Description:  fmt.Sprintf("criterion %s could not be evaluated: %v", crit.Name, err),
		SuggestedFix: crit.Description,
		Effort:       models.EffortMedium,
		AutoFixable:  false,
	}
}

// gapForUncoveredRequirement builds the gap recorded when a requirement is
// not addressed by the output.
func gapForUncoveredRequirement(cov models.RequirementCoverage) models.Gap {
	return models.Gap{
		ID:           models.NewID(),
		Severity:     models.SeverityMajor,
		Category:     models.CategoryMissing,
		Description:  fmt.Sprintf("requirement not addressed: %s", cov.Requirement),
		Requirement:  cov.Requirement,
		SuggestedFix: fmt.Sprintf("add content addressing: %s", cov.Requirement),
		Effort:       models.EffortMedium,
		AutoFixable:  true,
	}
}

// fixableGaps filters gaps to those a remediation callback may act on.
func fixableGaps(gaps []models.Gap) []models.Gap {
	var fixable []models.Gap
	for _, g := range gaps {
		if g.AutoFixable {
			fixable = append(fixable, g)
		}
	}
	return fixable
}
