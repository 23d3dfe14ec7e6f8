package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for greenlight
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "greenlight",
		Short: "Iterative quality gate for agent output",
		Long: `Greenlight reviews agent output against registered capability sets
and decides whether to approve it, flag it for rework, or escalate it
to a human.

Each review pass extracts requirements from the originating request,
checks the output for coverage, runs the capability set's criteria, and
combines the results into weighted quality scores. Review history can be
persisted to SQLite and an append-only audit log, and escalations can be
delivered to the terminal or a webhook.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text. Errors
		// are printed once by main, which also maps them to exit codes.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	cmd.AddCommand(NewReviewCommand())
	cmd.AddCommand(NewCriteriaCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
