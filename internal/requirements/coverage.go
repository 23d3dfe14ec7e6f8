package requirements

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/harrison/greenlight/internal/models"
	"github.com/harrison/greenlight/internal/review"
)

// minKeywordLength drops short function words before matching.
const minKeywordLength = 4

// coveredRatio is the keyword fraction at which a requirement counts as
// addressed.
const coveredRatio = 0.5

// KeywordCoverage checks requirements against the output's textual surface
// by keyword overlap. It is the general-purpose checker and the fallback
// for structured ones.
type KeywordCoverage struct{}

func NewKeywordCoverage() *KeywordCoverage {
	return &KeywordCoverage{}
}

func (k *KeywordCoverage) Check(ctx context.Context, requirement string, output *models.AgentOutput, rc *review.Context) (models.RequirementCoverage, error) {
	if err := ctx.Err(); err != nil {
		return models.RequirementCoverage{}, err
	}

	cov := models.RequirementCoverage{
		Requirement: requirement,
		Source:      classifySource(requirement, rc),
	}

	words := keywords(requirement)
	if len(words) == 0 {
		// Nothing checkable; never penalize the output for it.
		cov.Covered = true
		cov.Confidence = 0.5
		cov.Details = "no significant keywords to check"
		return cov, nil
	}

	surface := strings.ToLower(output.Text())
	matched := 0
	for _, w := range words {
		if strings.Contains(surface, w) {
			matched++
		}
	}

	ratio := float64(matched) / float64(len(words))
	cov.Covered = ratio >= coveredRatio
	cov.Confidence = ratio
	cov.Details = fmt.Sprintf("%d of %d keywords present", matched, len(words))
	return cov, nil
}

// WorkItemCoverage checks requirements against structured work items by
// substring match, reporting the matched item as evidence. Outputs without
// items, and requirements no item matches, fall through to keyword
// coverage over the full text surface.
type WorkItemCoverage struct {
	fallback *KeywordCoverage
}

func NewWorkItemCoverage() *WorkItemCoverage {
	return &WorkItemCoverage{fallback: NewKeywordCoverage()}
}

func (w *WorkItemCoverage) Check(ctx context.Context, requirement string, output *models.AgentOutput, rc *review.Context) (models.RequirementCoverage, error) {
	if err := ctx.Err(); err != nil {
		return models.RequirementCoverage{}, err
	}

	if output == nil || len(output.Items) == 0 {
		return w.fallback.Check(ctx, requirement, output, rc)
	}

	needle := strings.ToLower(strings.TrimSpace(requirement))
	for _, item := range output.Items {
		if matchesItem(needle, item) {
			return models.RequirementCoverage{
				Requirement: requirement,
				Source:      classifySource(requirement, rc),
				Covered:     true,
				Details:     fmt.Sprintf("addressed by work item %s", item.ID),
				Evidence:    item.ID,
				Confidence:  1,
			}, nil
		}
	}

	return w.fallback.Check(ctx, requirement, output, rc)
}

// matchesItem reports whether a requirement and a work item reference each
// other textually, in either direction: the requirement may quote the item
// title, or the title/description may contain the requirement.
func matchesItem(needle string, item models.WorkItem) bool {
	title := strings.ToLower(item.Title)
	description := strings.ToLower(item.Description)

	if title != "" && (strings.Contains(title, needle) || strings.Contains(needle, title)) {
		return true
	}
	return description != "" && strings.Contains(description, needle)
}

// keywords tokenizes a requirement into significant lower-cased words,
// trimming punctuation and dropping anything shorter than four characters.
func keywords(requirement string) []string {
	var words []string
	for _, field := range strings.Fields(strings.ToLower(requirement)) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) >= minKeywordLength {
			words = append(words, word)
		}
	}
	return words
}

// classifySource labels where a requirement came from. Acceptance criteria
// win over description matches because a criterion may be restated in the
// description verbatim.
func classifySource(requirement string, rc *review.Context) string {
	if rc == nil {
		return models.SourceExplicit
	}
	for _, ac := range rc.AcceptanceCriteria {
		if strings.TrimSpace(ac) == requirement {
			return models.SourceAcceptanceCriteria
		}
	}
	if strings.Contains(rc.Request.Description, requirement) {
		return models.SourceExplicit
	}
	return models.SourceImplicit
}
