package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/greenlight/internal/escalate"
	"github.com/harrison/greenlight/internal/models"
)

// ProduceFunc creates the initial output under review. Errors are fatal
// and propagate to the caller unchanged: no fallback output exists to
// review.
type ProduceFunc func(ctx context.Context) (*models.AgentOutput, error)

// AddressGapsFunc applies fixes for the given auto-fixable gaps and returns
// the revised output. Implementations must tolerate an empty gap slice and
// treat the input output as a value to replace, not mutate.
type AddressGapsFunc func(ctx context.Context, output *models.AgentOutput, gaps []models.Gap) (*models.AgentOutput, error)

// Outcome is the terminal result of one review loop execution: the final
// output (with routing metadata stamped) and every review produced.
type Outcome struct {
	Output  *models.AgentOutput
	Reviews []models.ReviewResult
}

// Escalated reports whether the loop handed the output to human review.
func (o *Outcome) Escalated() bool {
	return o != nil && o.Output != nil && o.Output.Routing.NeedsApproval
}

// Loop drives the produce -> review -> (fix | stop) cycle for one agent
// capability, bounded by the configured iteration count. A Loop is safe
// for repeated Execute calls but not for concurrent use; independent
// in-flight tasks each get their own Loop and share no mutable state.
type Loop struct {
	cfg       models.ReviewConfig
	criteria  []Criterion
	extractor Extractor
	coverage  CoverageChecker
	clock     func() time.Time

	Logger   Logger            // Optional; nil disables progress logging
	Recorder Recorder          // Optional; nil disables review history
	Notifier escalate.Notifier // Optional; nil disables escalation delivery
}

// NewLoop constructs a review loop from a resolved capability: its
// criteria, requirement extractor, and coverage checker. The config is
// captured by value and immutable for the lifetime of the loop.
func NewLoop(cfg models.ReviewConfig, criteria []Criterion, extractor Extractor, coverage CoverageChecker) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid review config: %w", err)
	}
	if extractor == nil {
		return nil, errors.New("review loop requires a requirement extractor")
	}
	if coverage == nil {
		return nil, errors.New("review loop requires a coverage checker")
	}
	for _, crit := range criteria {
		if err := validateCriterion(crit); err != nil {
			return nil, err
		}
	}

	return &Loop{
		cfg:       cfg,
		criteria:  criteria,
		extractor: extractor,
		coverage:  coverage,
		clock:     time.Now,
	}, nil
}

// Execute produces an output and reviews it until approval, escalation, or
// iteration exhaustion. Criterion, coverage, and remediation failures are
// recoverable and never abort the loop; the only errors returned are a
// produce failure, an invalid call, or context cancellation.
func (l *Loop) Execute(ctx context.Context, req models.Request, produce ProduceFunc, addressGaps AddressGapsFunc) (*Outcome, error) {
	if produce == nil {
		return nil, errors.New("review loop requires a produce function")
	}

	output, err := produce(ctx)
	if err != nil {
		return nil, err
	}

	if !l.cfg.Enabled {
		return &Outcome{Output: output}, nil
	}

	outputs := []*models.AgentOutput{output}
	var reviews []models.ReviewResult

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := l.reviewOnce(ctx, req, output, iteration, outputs, reviews)
		reviews = append(reviews, result)
		l.record(ctx, &result)

		l.infof("review iteration %d: agent=%s quality=%.2f gaps=%d decision=%s",
			result.Iteration, result.AgentID, result.QualityScore, len(result.Gaps), result.Decision)

		switch {
		case result.Decision == models.DecisionApproved:
			output.Routing = models.RoutingMetadata{NeedsApproval: false, Notes: result.Reasoning}
			return &Outcome{Output: output, Reviews: reviews}, nil

		case result.Decision == models.DecisionEscalate:
			l.escalateOutput(ctx, req, output, reviews, "escalation: "+result.Reasoning)
			return &Outcome{Output: output, Reviews: reviews}, nil

		case result.CriticalGaps > l.cfg.MaxCriticalGaps:
			// Hard rule independent of the decision function: a flood of
			// critical gaps always terminates the loop.
			reason := fmt.Sprintf("escalation: %d critical gaps exceed the limit of %d",
				result.CriticalGaps, l.cfg.MaxCriticalGaps)
			l.escalateOutput(ctx, req, output, reviews, reason)
			return &Outcome{Output: output, Reviews: reviews}, nil
		}

		// needs_work: hand the auto-fixable gaps to the remediation
		// callback. Fix attempts are best-effort; failures keep the
		// unmodified output for the next iteration.
		fixable := fixableGaps(reviews[len(reviews)-1].Gaps)
		if len(fixable) > 0 && addressGaps != nil {
			fixed, fixErr := l.callAddressGaps(ctx, addressGaps, output, fixable)
			switch {
			case fixErr != nil:
				l.warnf("task %s: gap remediation failed on iteration %d: %v", req.TaskID, iteration+1, fixErr)
			case fixed != nil:
				output = fixed
				outputs = append(outputs, output)
			}
		}
	}

	// Exhaustion is an expected terminal state, signaled as escalation.
	reason := fmt.Sprintf("escalation: maximum iterations (%d) exhausted without approval", l.cfg.MaxIterations)
	l.escalateOutput(ctx, req, output, reviews, reason)
	return &Outcome{Output: output, Reviews: reviews}, nil
}

// reviewOnce performs a single review pass: context assembly, requirement
// extraction, criterion evaluation, coverage checking, scoring, and the
// decision. It never returns an error; failures inside callbacks degrade
// to gaps or skipped requirements.
func (l *Loop) reviewOnce(ctx context.Context, req models.Request, output *models.AgentOutput, iteration int, priorOutputs []*models.AgentOutput, priorReviews []models.ReviewResult) models.ReviewResult {
	started := l.clock()

	rc := BuildContext(req, iteration, priorOutputs, priorReviews)
	requirements := l.extractRequirements(ctx, req)

	var (
		gaps    []models.Gap
		results []models.CriterionResult
	)

	for _, crit := range l.criteria {
		res, err := l.runCriterion(ctx, crit, output, req, rc)
		if err != nil {
			l.warnf("task %s: criterion %s failed: %v", req.TaskID, crit.ID, err)
			gaps = append(gaps, gapForCriterionError(crit, err))
			results = append(results, models.CriterionResult{
				Passed:  false,
				Score:   0,
				Details: fmt.Sprintf("criterion error: %v", err),
			})
			continue
		}
		res.Score = clamp01(res.Score)
		results = append(results, res)
		if !res.Passed {
			gaps = append(gaps, gapForFailedCriterion(crit, res))
		}
	}

	var coverage []models.RequirementCoverage
	for _, requirement := range requirements {
		cov, err := l.runCoverage(ctx, requirement, output, rc)
		if err != nil {
			// Skipped requirements are excluded from both the numerator
			// and denominator of the completeness score.
			l.warnf("task %s: coverage check failed for %q: %v", req.TaskID, truncate(requirement, 60), err)
			continue
		}
		coverage = append(coverage, cov)
		if !cov.Covered {
			gaps = append(gaps, gapForUncoveredRequirement(cov))
		}
	}

	scores := ScoreIteration(results, coverage, gaps)
	decision, reasoning := Decide(scores, gaps, iteration, l.cfg)
	critical, major, minor := models.CountGaps(gaps)

	return models.ReviewResult{
		ReviewID:          models.NewID(),
		TaskID:            req.TaskID,
		AgentID:           req.AgentID,
		Iteration:         iteration + 1,
		QualityScore:      scores.Quality,
		CompletenessScore: scores.Completeness,
		CorrectnessScore:  scores.Correctness,
		OverallScore:      scores.Quality,
		Requirements:      requirements,
		Coverage:          coverage,
		Gaps:              gaps,
		CriticalGaps:      critical,
		MajorGaps:         major,
		MinorGaps:         minor,
		Decision:          decision,
		Reasoning:         reasoning,
		DurationMs:        l.clock().Sub(started).Milliseconds(),
		Timestamp:         started,
	}
}

// extractRequirements asks the extractor for requirements. Extraction
// failures degrade to an empty requirement list: nothing can be checked,
// so completeness is vacuously satisfied for the iteration.
func (l *Loop) extractRequirements(ctx context.Context, req models.Request) []string {
	cctx, cancel := l.callContext(ctx)
	defer cancel()

	requirements, err := l.extractor.Extract(cctx, req)
	if err != nil {
		l.warnf("task %s: requirement extraction failed: %v", req.TaskID, err)
		return nil
	}
	return requirements
}

// runCriterion evaluates one criterion under the per-call timeout,
// converting panics in the callback to errors so one misbehaving rule
// cannot abort the run.
func (l *Loop) runCriterion(ctx context.Context, crit Criterion, output *models.AgentOutput, req models.Request, rc *Context) (res models.CriterionResult, err error) {
	cctx, cancel := l.callContext(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("criterion panicked: %v", r)
		}
	}()

	return crit.Validate(cctx, output, req, rc)
}

// runCoverage evaluates coverage of one requirement under the per-call
// timeout, with the same panic boundary as criteria.
func (l *Loop) runCoverage(ctx context.Context, requirement string, output *models.AgentOutput, rc *Context) (cov models.RequirementCoverage, err error) {
	cctx, cancel := l.callContext(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("coverage check panicked: %v", r)
		}
	}()

	return l.coverage.Check(cctx, requirement, output, rc)
}

func (l *Loop) callAddressGaps(ctx context.Context, addressGaps AddressGapsFunc, output *models.AgentOutput, gaps []models.Gap) (fixed *models.AgentOutput, err error) {
	cctx, cancel := l.callContext(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			fixed = nil
			err = fmt.Errorf("remediation panicked: %v", r)
		}
	}()

	return addressGaps(cctx, output, gaps)
}

// callContext bounds one outbound call with the configured timeout.
func (l *Loop) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, l.cfg.CallTimeout)
	}
	return ctx, func() {}
}

// escalateOutput stamps the routing envelope for human review and delivers
// the escalation through the configured notifier. Delivery is best-effort.
func (l *Loop) escalateOutput(ctx context.Context, req models.Request, output *models.AgentOutput, reviews []models.ReviewResult, notes string) {
	output.Routing = models.RoutingMetadata{NeedsApproval: true, Notes: notes}

	if l.Notifier == nil || len(reviews) == 0 {
		return
	}

	last := reviews[len(reviews)-1]
	esc := escalate.Escalation{
		TaskID:       req.TaskID,
		AgentID:      req.AgentID,
		Reason:       notes,
		QualityScore: last.QualityScore,
		CriticalGaps: last.CriticalGaps,
		Iterations:   len(reviews),
		Timestamp:    l.clock(),
	}
	if err := l.Notifier.Notify(ctx, esc); err != nil {
		l.warnf("task %s: escalation delivery via %s failed: %v", req.TaskID, l.Notifier.Name(), err)
	}
}

func (l *Loop) record(ctx context.Context, result *models.ReviewResult) {
	if l.Recorder == nil {
		return
	}
	if err := l.Recorder.Record(ctx, result); err != nil {
		l.warnf("task %s: failed to record review %s: %v", result.TaskID, result.ReviewID, err)
	}
}

func (l *Loop) infof(format string, args ...interface{}) {
	if l.Logger != nil {
		l.Logger.LogInfo(fmt.Sprintf(format, args...))
	}
}

func (l *Loop) warnf(format string, args ...interface{}) {
	if l.Logger != nil {
		l.Logger.LogWarn(fmt.Sprintf(format, args...))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
