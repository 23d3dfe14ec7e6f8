// Package markup reviews rendered HTML output for accessibility defects:
// images without alt text, interactive controls without an accessible
// name, and heading levels that skip.
package markup

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/harrison/greenlight/internal/models"
	"github.com/harrison/greenlight/internal/requirements"
	"github.com/harrison/greenlight/internal/review"
)

// Agent is the ID this capability set registers under.
const Agent = "markup"

// Criteria returns the markup criteria in evaluation order.
func Criteria() []review.Criterion {
	return []review.Criterion{
		AltTextCriterion(),
		ControlLabelCriterion(),
		HeadingOrderCriterion(),
	}
}

// NewExtractor returns the plain text extractor; markup requests carry no
// implicit requirements.
func NewExtractor() *requirements.TextExtractor {
	return requirements.NewTextExtractor()
}

// NewCoverage returns the coverage checker for markup output.
func NewCoverage() review.CoverageChecker {
	return requirements.NewKeywordCoverage()
}

// AltTextCriterion requires every img element to carry non-empty alt text.
func AltTextCriterion() review.Criterion {
	return review.Criterion{
		ID:          "markup.alt-text",
		Name:        "image alt text",
		Description: "every image must carry a non-empty alt attribute",
		Severity:    models.SeverityMajor,
		Category:    models.CategoryIncomplete,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			doc, result, err := parseMarkup(output)
			if doc == nil {
				return result, err
			}

			total := 0
			var missing []string
			doc.Find("img").Each(func(i int, s *goquery.Selection) {
				total++
				if alt, _ := s.Attr("alt"); strings.TrimSpace(alt) == "" {
					if src, ok := s.Attr("src"); ok && src != "" {
						missing = append(missing, src)
					} else {
						missing = append(missing, fmt.Sprintf("image #%d", i+1))
					}
				}
			})

			if total == 0 {
				return models.CriterionResult{Passed: true, Score: 1, Details: "no images to validate"}, nil
			}
			if len(missing) == 0 {
				return models.CriterionResult{
					Passed:  true,
					Score:   1,
					Details: fmt.Sprintf("all %d images carry alt text", total),
				}, nil
			}

			return models.CriterionResult{
				Passed:       false,
				Score:        float64(total-len(missing)) / float64(total),
				Details:      fmt.Sprintf("%d of %d images missing alt text", len(missing), total),
				SuggestedFix: fmt.Sprintf("add alt attributes to: %s", strings.Join(missing, ", ")),
				Effort:       models.EffortSmall,
			}, nil
		},
	}
}

// ControlLabelCriterion requires interactive controls to expose an
// accessible name through text content, aria-label, aria-labelledby, or an
// associated label element.
func ControlLabelCriterion() review.Criterion {
	return review.Criterion{
		ID:          "markup.control-labels",
		Name:        "control labels",
		Description: "every interactive control needs an accessible name",
		Severity:    models.SeverityMajor,
		Category:    models.CategoryIncorrect,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			doc, result, err := parseMarkup(output)
			if doc == nil {
				return result, err
			}

			total := 0
			var unnamed []string
			doc.Find("button, a, input, select, textarea").Each(func(i int, s *goquery.Selection) {
				if goquery.NodeName(s) == "input" {
					if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
						return
					}
				}
				total++
				if !hasAccessibleName(doc, s) {
					unnamed = append(unnamed, controlName(s))
				}
			})

			if total == 0 {
				return models.CriterionResult{Passed: true, Score: 1, Details: "no interactive controls to validate"}, nil
			}
			if len(unnamed) == 0 {
				return models.CriterionResult{
					Passed:  true,
					Score:   1,
					Details: fmt.Sprintf("all %d controls carry an accessible name", total),
				}, nil
			}

			return models.CriterionResult{
				Passed:       false,
				Score:        float64(total-len(unnamed)) / float64(total),
				Details:      fmt.Sprintf("%d of %d controls lack an accessible name", len(unnamed), total),
				SuggestedFix: fmt.Sprintf("label these controls: %s", strings.Join(unnamed, ", ")),
				Effort:       models.EffortSmall,
			}, nil
		},
	}
}

// HeadingOrderCriterion flags heading levels that skip, e.g. an h3
// directly after an h1.
func HeadingOrderCriterion() review.Criterion {
	return review.Criterion{
		ID:          "markup.heading-order",
		Name:        "heading order",
		Description: "heading levels must descend without skipping",
		Severity:    models.SeverityMinor,
		Category:    models.CategoryQuality,
		Validate: func(ctx context.Context, output *models.AgentOutput, req models.Request, rc *review.Context) (models.CriterionResult, error) {
			doc, result, err := parseMarkup(output)
			if doc == nil {
				return result, err
			}

			total := 0
			previous := 0
			var skips []string
			doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
				total++
				level := int(goquery.NodeName(s)[1] - '0')
				if previous > 0 && level > previous+1 {
					skips = append(skips, fmt.Sprintf("h%d follows h%d", level, previous))
				}
				previous = level
			})

			if total == 0 {
				return models.CriterionResult{Passed: true, Score: 1, Details: "no headings to validate"}, nil
			}
			if len(skips) == 0 {
				return models.CriterionResult{
					Passed:  true,
					Score:   1,
					Details: fmt.Sprintf("%d headings in order", total),
				}, nil
			}

			score := 1 - float64(len(skips))/float64(total)
			if score < 0 {
				score = 0
			}
			return models.CriterionResult{
				Passed:       false,
				Score:        score,
				Details:      fmt.Sprintf("heading levels skip: %s", strings.Join(skips, "; ")),
				SuggestedFix: "renumber headings so each level increases by at most one",
				Effort:       models.EffortTrivial,
			}, nil
		},
	}
}

// parseMarkup returns the parsed document, or a neutral pass result when
// the output carries no markup.
func parseMarkup(output *models.AgentOutput) (*goquery.Document, models.CriterionResult, error) {
	if output == nil || strings.TrimSpace(output.Markup) == "" {
		return nil, models.CriterionResult{Passed: true, Score: 1, Details: "no markup to validate"}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(output.Markup))
	if err != nil {
		return nil, models.CriterionResult{}, fmt.Errorf("parse markup: %w", err)
	}
	return doc, models.CriterionResult{}, nil
}

func hasAccessibleName(doc *goquery.Document, s *goquery.Selection) bool {
	if strings.TrimSpace(s.Text()) != "" {
		return true
	}
	if v, ok := s.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := s.Attr("aria-labelledby"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if id, ok := s.Attr("id"); ok && id != "" {
		if doc.Find(fmt.Sprintf("label[for=%q]", id)).Length() > 0 {
			return true
		}
	}
	return false
}

// controlName labels a control for defect reporting, e.g. "input#email".
func controlName(s *goquery.Selection) string {
	name := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return name + "#" + id
	}
	return name
}
