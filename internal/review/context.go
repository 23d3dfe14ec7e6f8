package review

import "github.com/harrison/greenlight/internal/models"

// Context is the read-only bundle of information criteria and coverage
// checks may consult alongside the output under review: prior outputs,
// prior reviews, project configuration, design constraints, and the
// request's acceptance criteria. Callees must not mutate it.
type Context struct {
	Request            models.Request
	Iteration          int // 0-based index of the running iteration
	PriorOutputs       []*models.AgentOutput
	PriorReviews       []models.ReviewResult
	ProjectConfig      map[string]string
	DesignConstraints  []string
	AcceptanceCriteria []string
}

// BuildContext assembles the review context for one iteration.
func BuildContext(req models.Request, iteration int, priorOutputs []*models.AgentOutput, priorReviews []models.ReviewResult) *Context {
	return &Context{
		Request:            req,
		Iteration:          iteration,
		PriorOutputs:       priorOutputs,
		PriorReviews:       priorReviews,
		ProjectConfig:      req.ProjectConfig,
		DesignConstraints:  req.DesignConstraints,
		AcceptanceCriteria: req.AcceptanceCriteria,
	}
}

// LastReview returns the most recent prior review, or nil on the first
// iteration.
func (rc *Context) LastReview() *models.ReviewResult {
	if rc == nil || len(rc.PriorReviews) == 0 {
		return nil
	}
	return &rc.PriorReviews[len(rc.PriorReviews)-1]
}

// FirstOutput returns the output produced before any fixes were applied,
// or nil when no output has been recorded.
func (rc *Context) FirstOutput() *models.AgentOutput {
	if rc == nil || len(rc.PriorOutputs) == 0 {
		return nil
	}
	return rc.PriorOutputs[0]
}
