package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Gap severity constants
const (
	SeverityCritical = "critical" // Blocks acceptance on its own
	SeverityMajor    = "major"    // Must be resolved before approval
	SeverityMinor    = "minor"    // Cosmetic or low-impact
)

// Gap category constants
const (
	CategoryMissing    = "missing"    // Required content absent
	CategoryIncomplete = "incomplete" // Present but unfinished
	CategoryIncorrect  = "incorrect"  // Present but wrong
	CategoryQuality    = "quality"    // Structural or stylistic defect
)

// Effort estimate constants for addressing a gap
const (
	EffortTrivial = "trivial"
	EffortSmall   = "small"
	EffortMedium  = "medium"
	EffortLarge   = "large"
)

// Review decision constants
const (
	DecisionApproved  = "approved"   // Output accepted, no further iterations
	DecisionNeedsWork = "needs_work" // Output should be fixed and re-reviewed
	DecisionEscalate  = "escalate"   // Output handed off for human review
)

// Requirement source constants
const (
	SourceExplicit           = "explicit"            // Bulleted/numbered/modal-verb text
	SourceImplicit           = "implicit"            // Keyword-triggered heuristics
	SourceAcceptanceCriteria = "acceptance_criteria" // Supplied by the request
)

// CriterionResult is the verdict a single criterion returns for one output.
// Score is normalized into [0,1] by the review engine before use; Passed with
// a score below 1.0 is legal (partial pass).
type CriterionResult struct {
	Passed       bool    `json:"passed"`
	Score        float64 `json:"score"`
	Details      string  `json:"details"`
	SuggestedFix string  `json:"suggested_fix,omitempty"`
	Effort       string  `json:"estimated_effort,omitempty"`
}

// RequirementCoverage records whether one requirement is addressed by the output.
type RequirementCoverage struct {
	Requirement string  `json:"requirement"`
	Source      string  `json:"source"`
	Covered     bool    `json:"covered"`
	Details     string  `json:"coverage_details"`
	Evidence    string  `json:"evidence_location,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Gap is a structured record of a detected deficiency in an agent's output.
// Gaps are ephemeral: each review iteration creates them fresh, and a gap
// persists across iterations only if the next run independently redetects it.
type Gap struct {
	ID           string `json:"id"`
	Severity     string `json:"severity"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Requirement  string `json:"affected_requirement,omitempty"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
	Effort       string `json:"estimated_effort,omitempty"`
	AutoFixable  bool   `json:"auto_fixable"`
}

// ReviewResult captures one review iteration: scores, coverage, gaps,
// and the decision the engine reached.
type ReviewResult struct {
	ReviewID          string                `json:"review_id"`
	TaskID            string                `json:"task_id"`
	AgentID           string                `json:"agent_id"`
	Iteration         int                   `json:"iteration"` // 1-based
	QualityScore      float64               `json:"quality_score"`
	CompletenessScore float64               `json:"completeness_score"`
	CorrectnessScore  float64               `json:"correctness_score"`
	OverallScore      float64               `json:"overall_score"`
	Requirements      []string              `json:"task_requirements"`
	Coverage          []RequirementCoverage `json:"requirements_covered"`
	Gaps              []Gap                 `json:"gaps"`
	CriticalGaps      int                   `json:"critical_gaps"`
	MajorGaps         int                   `json:"major_gaps"`
	MinorGaps         int                   `json:"minor_gaps"`
	Decision          string                `json:"decision"`
	Reasoning         string                `json:"reasoning"`
	DurationMs        int64                 `json:"review_duration_ms"`
	Timestamp         time.Time             `json:"timestamp"`
}

// ReviewConfig controls the self-review loop. It is supplied at loop
// construction and immutable for the lifetime of one loop instance.
type ReviewConfig struct {
	// Enabled turns the review loop on. When false, execution degenerates
	// to a single pass-through call to the producer.
	Enabled bool `yaml:"enabled"`

	// MaxIterations bounds the produce -> review -> fix cycle
	MaxIterations int `yaml:"max_iterations"`

	// QualityThreshold is the minimum quality score for approval (0..1)
	QualityThreshold float64 `yaml:"quality_threshold"`

	// CompletenessThreshold is the minimum completeness score for approval (0..1)
	CompletenessThreshold float64 `yaml:"completeness_threshold"`

	// MaxCriticalGaps is the critical-gap count above which the loop escalates
	MaxCriticalGaps int `yaml:"max_critical_gaps"`

	// EscalateAfterIterations is the iteration index (0-based) from which
	// persistently low quality scores force escalation
	EscalateAfterIterations int `yaml:"escalate_after_iterations"`

	// EscalateOnCriticalGaps enables the critical-gap decision rule
	EscalateOnCriticalGaps bool `yaml:"escalate_on_critical_gaps"`

	// CallTimeout bounds each criterion, coverage, and remediation call.
	// Zero disables the bound.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// DefaultReviewConfig returns a ReviewConfig with production defaults.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Enabled:                 true,
		MaxIterations:           3,
		QualityThreshold:        0.8,
		CompletenessThreshold:   0.8,
		MaxCriticalGaps:         2,
		EscalateAfterIterations: 2,
		EscalateOnCriticalGaps:  true,
		CallTimeout:             30 * time.Second,
	}
}

// Validate checks threshold and bound ranges.
func (c ReviewConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be in [0,1], got %v", c.QualityThreshold)
	}
	if c.CompletenessThreshold < 0 || c.CompletenessThreshold > 1 {
		return fmt.Errorf("completeness_threshold must be in [0,1], got %v", c.CompletenessThreshold)
	}
	if c.MaxCriticalGaps < 0 {
		return fmt.Errorf("max_critical_gaps must be >= 0, got %d", c.MaxCriticalGaps)
	}
	if c.EscalateAfterIterations < 0 {
		return fmt.Errorf("escalate_after_iterations must be >= 0, got %d", c.EscalateAfterIterations)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must be >= 0, got %v", c.CallTimeout)
	}
	return nil
}

// NewID returns a fresh unique identifier for reviews and gaps.
func NewID() string {
	return uuid.New().String()
}

// CountGaps tallies gaps by severity.
func CountGaps(gaps []Gap) (critical, major, minor int) {
	for _, g := range gaps {
		switch g.Severity {
		case SeverityCritical:
			critical++
		case SeverityMajor:
			major++
		case SeverityMinor:
			minor++
		}
	}
	return critical, major, minor
}

// ValidSeverity reports whether s is a recognized gap severity.
func ValidSeverity(s string) bool {
	return s == SeverityCritical || s == SeverityMajor || s == SeverityMinor
}

// ValidCategory reports whether c is a recognized gap category.
func ValidCategory(c string) bool {
	return c == CategoryMissing || c == CategoryIncomplete ||
		c == CategoryIncorrect || c == CategoryQuality
}
