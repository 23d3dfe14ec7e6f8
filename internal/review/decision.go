package review

import (
	"fmt"
	"strings"

	"github.com/harrison/greenlight/internal/models"
)

// escalationQualityFactor scales the quality threshold down for the
// repeated-low-score escalation rule: once the configured iteration index
// is reached, a quality score still below threshold*factor signals that
// further fix attempts are unlikely to converge.
const escalationQualityFactor = 0.7

// Decide applies the threshold and escalation policy to one iteration's
// scores and gaps. Rule order is load-bearing: critical-gap escalation
// takes precedence over an otherwise-passing score, so a severe defect is
// never silently accepted because minor ones outnumber it.
func Decide(scores Scores, gaps []models.Gap, iteration int, cfg models.ReviewConfig) (decision, reasoning string) {
	critical, major, _ := models.CountGaps(gaps)

	if cfg.EscalateOnCriticalGaps && critical > cfg.MaxCriticalGaps {
		return models.DecisionEscalate,
			fmt.Sprintf("%d critical gaps exceed the limit of %d", critical, cfg.MaxCriticalGaps)
	}

	floor := cfg.QualityThreshold * escalationQualityFactor
	if iteration >= cfg.EscalateAfterIterations && scores.Quality < floor {
		return models.DecisionEscalate,
			fmt.Sprintf("quality %.2f still below %.2f after %d iterations", scores.Quality, floor, iteration+1)
	}

	if scores.Quality >= cfg.QualityThreshold &&
		scores.Completeness >= cfg.CompletenessThreshold &&
		critical == 0 && major == 0 {
		return models.DecisionApproved,
			fmt.Sprintf("quality %.2f and completeness %.2f meet thresholds with no blocking gaps", scores.Quality, scores.Completeness)
	}

	return models.DecisionNeedsWork, needsWorkReason(scores, cfg, critical, major)
}

func needsWorkReason(scores Scores, cfg models.ReviewConfig, critical, major int) string {
	var reasons []string
	if scores.Quality < cfg.QualityThreshold {
		reasons = append(reasons, fmt.Sprintf("quality %.2f below threshold %.2f", scores.Quality, cfg.QualityThreshold))
	}
	if scores.Completeness < cfg.CompletenessThreshold {
		reasons = append(reasons, fmt.Sprintf("completeness %.2f below threshold %.2f", scores.Completeness, cfg.CompletenessThreshold))
	}
	if critical > 0 || major > 0 {
		reasons = append(reasons, fmt.Sprintf("%d blocking gaps remain", critical+major))
	}
	if len(reasons) == 0 {
		return "review thresholds not met"
	}
	return strings.Join(reasons, "; ")
}
