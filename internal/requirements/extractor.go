// Package requirements derives requirement strings from task requests and
// checks whether an agent's output addresses them. Extraction is purely
// textual: markdown list items, unicode bullets, modal-verb sentences, and
// the request's own acceptance criteria all become requirements, bounded
// in length and deduplicated.
package requirements

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/greenlight/internal/models"
)

// maxRequirementLength rejects runaway matches; a requirement longer than
// this is a parsing artifact, not a checkable statement.
const maxRequirementLength = 500

// modalPattern matches obligation sentences up to the closing period.
var modalPattern = regexp.MustCompile(`(?i)\b(?:should|must|need to|needs to|require(?:s|d)?)\s+[^.\n]+`)

// TextExtractor derives requirements from the request description and
// acceptance criteria. The zero value is not usable; construct with
// NewTextExtractor.
type TextExtractor struct {
	markdown goldmark.Markdown

	// Implicit maps a task description to domain-specific requirements
	// that are implied rather than stated, e.g. a login form implying a
	// password visibility toggle. Nil means no implicit requirements.
	Implicit func(description string) []string
}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		markdown: goldmark.New(),
	}
}

// Extract collects explicit, implicit, and acceptance-criteria requirements
// from the request, in that order, deduplicated on first occurrence.
func (e *TextExtractor) Extract(ctx context.Context, req models.Request) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := newCollector()
	description := requirementSurface(req)

	e.collectListItems(c, description)
	collectUnicodeBullets(c, description)
	collectModalSentences(c, description)

	if e.Implicit != nil {
		for _, r := range e.Implicit(description) {
			c.add(r)
		}
	}

	for _, ac := range req.AcceptanceCriteria {
		c.add(ac)
	}

	return c.out, nil
}

// requirementSurface is the text extraction scans: the request description
// when one was written, otherwise a generic rendering of the request's
// remaining fields. Blocks are blank-line separated so a constraint after a
// list does not continue the list item.
func requirementSurface(req models.Request) string {
	if desc := strings.TrimSpace(req.Description); desc != "" {
		return desc
	}

	parts := []string{req.TaskID}
	parts = append(parts, req.DesignConstraints...)
	parts = append(parts, req.AcceptanceCriteria...)

	keys := make([]string, 0, len(req.ProjectConfig))
	for k := range req.ProjectConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+req.ProjectConfig[k])
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// collectListItems walks the markdown AST and records the text of every
// list item, bulleted or ordered, at any nesting depth.
func (e *TextExtractor) collectListItems(c *collector, description string) {
	if description == "" {
		return
	}

	source := []byte(description)
	doc := e.markdown.Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		item, ok := n.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}
		// Only the item's own text blocks; nested lists are visited as
		// separate items by the walk.
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch child.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				c.add(nodeText(child, source))
			}
		}
		return ast.WalkContinue, nil
	})
}

// collectUnicodeBullets scans for "•" bullets, which markdown parsers do
// not treat as list markers.
func collectUnicodeBullets(c *collector, description string) {
	for _, line := range strings.Split(description, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "•") {
			c.add(strings.TrimPrefix(trimmed, "•"))
		}
	}
}

// collectModalSentences records obligation statements such as
// "must support password reset".
func collectModalSentences(c *collector, description string) {
	for _, match := range modalPattern.FindAllString(description, -1) {
		c.add(match)
	}
}

// nodeText gathers the raw text under a node, descending through inline
// containers such as emphasis and links.
func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// collector accumulates requirements with first-seen deduplication and
// length bounds.
type collector struct {
	seen map[string]bool
	out  []string
}

func newCollector() *collector {
	return &collector{seen: make(map[string]bool)}
}

func (c *collector) add(raw string) {
	req := strings.TrimSpace(raw)
	if req == "" || len(req) > maxRequirementLength {
		return
	}
	if c.seen[req] {
		return
	}
	c.seen[req] = true
	c.out = append(c.out, req)
}
