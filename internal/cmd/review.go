package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harrison/greenlight/internal/capability"
	"github.com/harrison/greenlight/internal/config"
	"github.com/harrison/greenlight/internal/escalate"
	"github.com/harrison/greenlight/internal/history"
	"github.com/harrison/greenlight/internal/logger"
	"github.com/harrison/greenlight/internal/models"
	"github.com/harrison/greenlight/internal/review"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrNotApproved reports that the review finished without approving the
// output. main maps it to its own exit code so CI pipelines can tell a
// rejected output apart from a review that could not run.
var ErrNotApproved = errors.New("review not approved")

// NewReviewCommand creates the review command
func NewReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a recorded agent output against its capability set",
		Long: `Review an agent output file against the capability set registered for
the agent that produced it.

The request file supplies the task description and acceptance criteria;
the output file holds the agent output under review. Requirements are
extracted from the request, coverage is checked against the output,
every criterion in the capability set runs, and the weighted scores
decide the verdict.

An output file cannot be revised between iterations, so a single pass
decides unless --max-iterations asks for more.

Configuration is loaded from .greenlight/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Review a task plan
  greenlight review --request request.yaml --output output.yaml

  # Review with an explicit capability set
  greenlight review --request request.yaml --output page.yaml --agent markup

  # Persist review history and audit records
  greenlight review --request request.yaml --output output.yaml \
    --history-db reviews.db --audit-log reviews.jsonl

  # Raise the bar for a release branch
  greenlight review --request request.yaml --output output.yaml --quality-threshold 0.9

Exit code: 0 if approved, 1 if needs work or escalated, 2 if the review could not run`,
		RunE: reviewCommand,
	}

	// Add flags
	cmd.Flags().String("request", "", "Path to the request file (YAML)")
	cmd.Flags().String("output", "", "Path to the agent output file (YAML)")
	cmd.Flags().String("agent", "", "Capability set to review with (default: agent_id from the request)")
	cmd.Flags().String("config", "", "Path to config file (default: .greenlight/config.yaml)")
	cmd.Flags().Int("max-iterations", 0, "Maximum review iterations")
	cmd.Flags().Float64("quality-threshold", 0, "Minimum quality score for approval")
	cmd.Flags().String("history-db", "", "Path to the review history database")
	cmd.Flags().String("audit-log", "", "Path to the append-only audit log (JSONL)")
	cmd.Flags().String("webhook", "", "URL notified when a review escalates")
	cmd.Flags().Bool("verbose", false, "Show per-iteration review detail")

	return cmd
}

// reviewCommand is the main logic for the review command
func reviewCommand(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	outputPath, _ := cmd.Flags().GetString("output")
	if requestPath == "" {
		return fmt.Errorf("--request is required")
	}
	if outputPath == "" {
		return fmt.Errorf("--output is required")
	}

	// Load configuration
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Merge CLI flags with config (flags take precedence)
	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	qualityThreshold, _ := cmd.Flags().GetFloat64("quality-threshold")
	historyDB, _ := cmd.Flags().GetString("history-db")
	auditLog, _ := cmd.Flags().GetString("audit-log")
	webhookURL, _ := cmd.Flags().GetString("webhook")
	verbose, _ := cmd.Flags().GetBool("verbose")

	var maxIterationsPtr *int
	if cmd.Flags().Changed("max-iterations") {
		maxIterationsPtr = &maxIterations
	}
	var qualityThresholdPtr *float64
	if cmd.Flags().Changed("quality-threshold") {
		qualityThresholdPtr = &qualityThreshold
	}
	var historyDBPtr *string
	if cmd.Flags().Changed("history-db") {
		historyDBPtr = &historyDB
	}
	var auditLogPtr *string
	if cmd.Flags().Changed("audit-log") {
		auditLogPtr = &auditLog
	}
	var webhookPtr *string
	if cmd.Flags().Changed("webhook") {
		webhookPtr = &webhookURL
	}
	cfg.MergeWithFlags(maxIterationsPtr, qualityThresholdPtr, historyDBPtr, auditLogPtr, webhookPtr)

	// The output file is fixed for the whole run, so re-reviewing it
	// cannot change the verdict. One pass decides unless more iterations
	// are explicitly requested.
	if maxIterationsPtr == nil {
		cfg.Review.MaxIterations = 1
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	req, err := loadRequest(requestPath)
	if err != nil {
		return err
	}
	output, err := loadOutput(outputPath)
	if err != nil {
		return err
	}

	agentID, _ := cmd.Flags().GetString("agent")
	if agentID == "" {
		agentID = req.AgentID
	}
	if agentID == "" {
		return fmt.Errorf("no capability set to review with: set --agent or agent_id in %s", requestPath)
	}
	req.AgentID = agentID

	set, err := capability.Builtin().Get(agentID)
	if err != nil {
		return err
	}

	loop, err := review.NewLoop(cfg.Review, set.Criteria, set.Extractor, set.Coverage)
	if err != nil {
		return err
	}
	loop.Logger = logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	loop.Notifier, err = buildNotifier(cmd, cfg)
	if err != nil {
		return err
	}

	var sinks []review.Recorder
	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if cfg.AuditLog != "" {
		audit, err := history.NewAuditLog(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		sinks = append(sinks, audit)
	}
	if len(sinks) > 0 {
		loop.Recorder = history.NewMultiRecorder(sinks...)
	}

	produce := func(ctx context.Context) (*models.AgentOutput, error) {
		return output, nil
	}
	// The artifact on disk is fixed; gaps end up in the report instead of
	// being remediated.
	identity := func(ctx context.Context, out *models.AgentOutput, gaps []models.Gap) (*models.AgentOutput, error) {
		return out, nil
	}

	start := time.Now()
	outcome, err := loop.Execute(cmd.Context(), *req, produce, identity)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	return printOutcome(cmd.OutOrStdout(), outcome, time.Since(start))
}

// loadRequest reads and parses a YAML request file
func loadRequest(path string) (*models.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	var req models.Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	if req.TaskID == "" {
		return nil, fmt.Errorf("request file %s has no task_id", path)
	}
	return &req, nil
}

// loadOutput reads and parses a YAML agent output file
func loadOutput(path string) (*models.AgentOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}
	var output models.AgentOutput
	if err := yaml.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to parse output file %s: %w", path, err)
	}
	return &output, nil
}

// buildNotifier assembles the escalation chain: always the terminal, plus
// a webhook when one is configured.
func buildNotifier(cmd *cobra.Command, cfg *config.Config) (escalate.Notifier, error) {
	notifiers := []escalate.Notifier{terminalNotifier(cmd)}
	if cfg.WebhookURL != "" {
		hook, err := escalate.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook notifier: %w", err)
		}
		notifiers = append(notifiers, hook)
	}
	return escalate.NewMultiNotifier(notifiers...), nil
}

// terminalNotifier uses color output only when the command writes to a
// real terminal. Tests swap the writer via cmd.SetErr.
func terminalNotifier(cmd *cobra.Command) escalate.Notifier {
	if errOut := cmd.ErrOrStderr(); errOut != os.Stderr {
		return escalate.NewTerminalNotifierWithWriter(errOut)
	}
	return escalate.NewTerminalNotifier()
}

// printOutcome renders the final review report and maps the verdict onto
// the command's error contract.
func printOutcome(out io.Writer, outcome *review.Outcome, duration time.Duration) error {
	if len(outcome.Reviews) == 0 {
		fmt.Fprintf(out, "Review is disabled; output passed through unreviewed.\n")
		return nil
	}

	last := outcome.Reviews[len(outcome.Reviews)-1]

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Review Summary:\n")
	fmt.Fprintf(out, "  Task: %s\n", last.TaskID)
	fmt.Fprintf(out, "  Agent: %s\n", last.AgentID)
	fmt.Fprintf(out, "  Iterations: %d\n", len(outcome.Reviews))
	fmt.Fprintf(out, "  Quality: %.2f\n", last.QualityScore)
	fmt.Fprintf(out, "  Completeness: %.2f\n", last.CompletenessScore)
	fmt.Fprintf(out, "  Correctness: %.2f\n", last.CorrectnessScore)
	fmt.Fprintf(out, "  Duration: %s\n", duration.Round(time.Millisecond))

	if len(last.Gaps) > 0 {
		fmt.Fprintf(out, "\nGaps (%d critical, %d major, %d minor):\n",
			last.CriticalGaps, last.MajorGaps, last.MinorGaps)
		for _, gap := range last.Gaps {
			fmt.Fprintf(out, "  - [%s/%s] %s\n", gap.Severity, gap.Category, gap.Description)
			if gap.SuggestedFix != "" {
				fmt.Fprintf(out, "      fix: %s\n", gap.SuggestedFix)
			}
		}
	}

	uncovered := uncoveredRequirements(last.Coverage)
	if len(uncovered) > 0 {
		fmt.Fprintf(out, "\nUncovered requirements (%d of %d):\n", len(uncovered), len(last.Coverage))
		for _, requirement := range uncovered {
			fmt.Fprintf(out, "  - %s\n", requirement)
		}
	}

	switch {
	case last.Decision == models.DecisionApproved:
		fmt.Fprintf(out, "\n✓ Output approved: %s\n", last.Reasoning)
		return nil
	case outcome.Escalated():
		// Routing notes carry the escalation reason even when the last
		// per-iteration decision was needs_work (iteration exhaustion,
		// critical gap flood).
		reason := strings.TrimPrefix(outcome.Output.Routing.Notes, "escalation: ")
		fmt.Fprintf(out, "\n✗ Output escalated for human review: %s\n", reason)
		return fmt.Errorf("%w: %s", ErrNotApproved, reason)
	default:
		fmt.Fprintf(out, "\n✗ Output needs work: %s\n", last.Reasoning)
		return fmt.Errorf("%w: %s", ErrNotApproved, last.Reasoning)
	}
}

func uncoveredRequirements(coverage []models.RequirementCoverage) []string {
	var uncovered []string
	for _, cov := range coverage {
		if !cov.Covered {
			uncovered = append(uncovered, cov.Requirement)
		}
	}
	return uncovered
}
