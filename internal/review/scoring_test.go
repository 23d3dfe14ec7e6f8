package review

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/harrison/greenlight/internal/models"
)

const scoreTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= scoreTolerance
}

func TestScoreIteration_VacuousSatisfaction(t *testing.T) {
	s := ScoreIteration(nil, nil, nil)

	if s.Criteria != 1 {
		t.Errorf("Criteria = %v, want 1 for zero criteria", s.Criteria)
	}
	if s.Completeness != 1 {
		t.Errorf("Completeness = %v, want 1 for zero requirements", s.Completeness)
	}
	if s.Correctness != 1 {
		t.Errorf("Correctness = %v, want 1 for zero gaps", s.Correctness)
	}
	if s.Quality != 1 {
		t.Errorf("Quality = %v, want 1", s.Quality)
	}
}

func TestScoreIteration_CriteriaMean(t *testing.T) {
	results := []models.CriterionResult{
		{Passed: false, Score: 0.5},
		{Passed: true, Score: 0.7},
	}

	s := ScoreIteration(results, nil, nil)
	if !almostEqual(s.Criteria, 0.6) {
		t.Errorf("Criteria = %v, want 0.6", s.Criteria)
	}
}

func TestScoreIteration_ClampsCriterionScores(t *testing.T) {
	results := []models.CriterionResult{
		{Score: -0.5},
		{Score: 1.5},
	}

	s := ScoreIteration(results, nil, nil)
	if !almostEqual(s.Criteria, 0.5) {
		t.Errorf("Criteria = %v, want 0.5 after clamping", s.Criteria)
	}
}

func TestScoreIteration_Completeness(t *testing.T) {
	coverage := []models.RequirementCoverage{
		{Requirement: "a", Covered: true},
		{Requirement: "b", Covered: false},
	}

	s := ScoreIteration(nil, coverage, nil)
	if !almostEqual(s.Completeness, 0.5) {
		t.Errorf("Completeness = %v, want 0.5", s.Completeness)
	}
}

func TestScoreIteration_Correctness(t *testing.T) {
	tests := []struct {
		name string
		gaps []models.Gap
		want float64
	}{
		{
			name: "no gaps",
			gaps: nil,
			want: 1,
		},
		{
			name: "no incorrect gaps",
			gaps: []models.Gap{
				{Category: models.CategoryQuality},
				{Category: models.CategoryMissing},
				{Category: models.CategoryIncomplete},
			},
			want: 1,
		},
		{
			name: "two of three incorrect",
			gaps: []models.Gap{
				{Category: models.CategoryIncorrect},
				{Category: models.CategoryIncorrect},
				{Category: models.CategoryQuality},
			},
			want: 1.0 / 3.0,
		},
		{
			name: "all incorrect",
			gaps: []models.Gap{
				{Category: models.CategoryIncorrect},
				{Category: models.CategoryIncorrect},
			},
			want: 0,
		},
		{
			// Non-incorrect gaps inflate the denominator, raising the score.
			name: "denominator includes other categories",
			gaps: []models.Gap{
				{Category: models.CategoryIncorrect},
				{Category: models.CategoryQuality},
				{Category: models.CategoryQuality},
				{Category: models.CategoryQuality},
			},
			want: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreIteration(nil, nil, tt.gaps)
			if !almostEqual(s.Correctness, tt.want) {
				t.Errorf("Correctness = %v, want %v", s.Correctness, tt.want)
			}
		})
	}
}

func TestScoreIteration_Weighting(t *testing.T) {
	results := []models.CriterionResult{
		{Score: 0.5},
		{Score: 0.7},
	}
	coverage := []models.RequirementCoverage{
		{Covered: true},
		{Covered: false},
	}
	gaps := []models.Gap{
		{Category: models.CategoryIncorrect},
		{Category: models.CategoryMissing},
	}

	s := ScoreIteration(results, coverage, gaps)

	// 0.4*0.6 + 0.4*0.5 + 0.2*0.5
	if !almostEqual(s.Quality, 0.54) {
		t.Errorf("Quality = %v, want 0.54", s.Quality)
	}
}

func TestScoreIteration_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		results  []models.CriterionResult
		coverage []models.RequirementCoverage
		gaps     []models.Gap
	}{
		{name: "empty"},
		{
			name:    "huge scores",
			results: []models.CriterionResult{{Score: 1e9}, {Score: 42}},
		},
		{
			name:    "negative scores",
			results: []models.CriterionResult{{Score: -1e9}},
		},
		{
			name:     "nothing covered",
			coverage: []models.RequirementCoverage{{Covered: false}, {Covered: false}},
			gaps:     []models.Gap{{Category: models.CategoryIncorrect}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ScoreIteration(tt.results, tt.coverage, tt.gaps)
			for name, v := range map[string]float64{
				"Criteria":     s.Criteria,
				"Completeness": s.Completeness,
				"Correctness":  s.Correctness,
				"Quality":      s.Quality,
			} {
				if v < 0 || v > 1 {
					t.Errorf("%s = %v, want value in [0,1]", name, v)
				}
			}
		})
	}
}

func TestGapForFailedCriterion(t *testing.T) {
	crit := Criterion{
		ID:          "acceptance",
		Name:        "Acceptance criteria",
		Description: "every item needs acceptance criteria",
		Severity:    models.SeverityMajor,
		Category:    models.CategoryIncomplete,
	}

	t.Run("uses result details when present", func(t *testing.T) {
		gap := gapForFailedCriterion(crit, models.CriterionResult{
			Details:      "2 of 5 items lack criteria",
			SuggestedFix: "add criteria to items 3 and 4",
			Effort:       models.EffortSmall,
		})

		if gap.Description != "2 of 5 items lack criteria" {
			t.Errorf("Description = %q", gap.Description)
		}
		if gap.SuggestedFix != "add criteria to items 3 and 4" {
			t.Errorf("SuggestedFix = %q", gap.SuggestedFix)
		}
		if gap.Effort != models.EffortSmall {
			t.Errorf("Effort = %q", gap.Effort)
		}
		if gap.Severity != models.SeverityMajor || gap.Category != models.CategoryIncomplete {
			t.Errorf("severity/category = %q/%q, want criterion's", gap.Severity, gap.Category)
		}
		if !gap.AutoFixable {
			t.Error("failed-criterion gaps must be auto-fixable")
		}
		if gap.ID == "" {
			t.Error("gap must carry a unique ID")
		}
	})

	t.Run("falls back to criterion metadata", func(t *testing.T) {
		gap := gapForFailedCriterion(crit, models.CriterionResult{})

		if !strings.Contains(gap.Description, "Acceptance criteria") {
			t.Errorf("fallback description should name the criterion, got %q", gap.Description)
		}
		if gap.SuggestedFix != crit.Description {
			t.Errorf("SuggestedFix = %q, want criterion description", gap.SuggestedFix)
		}
		if gap.Effort != models.EffortMedium {
			t.Errorf("Effort = %q, want medium default", gap.Effort)
		}
	})
}

func TestGapForCriterionError(t *testing.T) {
	crit := Criterion{
		ID:          "markup",
		Name:        "Markup hygiene",
		Description: "markup must parse",
		Severity:    models.SeverityCritical,
		Category:    models.CategoryIncorrect,
	}

	gap := gapForCriterionError(crit, errors.New("parser exploded"))

	if gap.AutoFixable {
		t.Error("error gaps must not be auto-fixable")
	}
	if gap.Severity != models.SeverityCritical || gap.Category != models.CategoryIncorrect {
		t.Errorf("severity/category = %q/%q, want criterion's", gap.Severity, gap.Category)
	}
	if !strings.Contains(gap.Description, "parser exploded") {
		t.Errorf("Description should carry the error, got %q", gap.Description)
	}
	if !strings.Contains(gap.Description, "Markup hygiene") {
		t.Errorf("Description should name the criterion, got %q", gap.Description)
	}
}

func TestGapForUncoveredRequirement(t *testing.T) {
	gap := gapForUncoveredRequirement(models.RequirementCoverage{
		Requirement: "password visibility toggle",
		Covered:     false,
	})

	if gap.Severity != models.SeverityMajor {
		t.Errorf("Severity = %q, want major", gap.Severity)
	}
	if gap.Category != models.CategoryMissing {
		t.Errorf("Category = %q, want missing", gap.Category)
	}
	if gap.Requirement != "password visibility toggle" {
		t.Errorf("Requirement = %q", gap.Requirement)
	}
	if !gap.AutoFixable {
		t.Error("uncovered-requirement gaps must be auto-fixable")
	}
	if !strings.Contains(gap.Description, "password visibility toggle") {
		t.Errorf("Description should name the requirement, got %q", gap.Description)
	}
}

func TestFixableGaps(t *testing.T) {
	gaps := []models.Gap{
		{ID: "1", AutoFixable: true},
		{ID: "2", AutoFixable: false},
		{ID: "3", AutoFixable: true},
	}

	fixable := fixableGaps(gaps)
	if len(fixable) != 2 {
		t.Fatalf("len = %d, want 2", len(fixable))
	}
	if fixable[0].ID != "1" || fixable[1].ID != "3" {
		t.Errorf("fixableGaps() = %v, want gaps 1 and 3", fixable)
	}

	if got := fixableGaps(nil); got != nil {
		t.Errorf("fixableGaps(nil) = %v, want nil", got)
	}
}
