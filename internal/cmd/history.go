package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/harrison/greenlight/internal/config"
	"github.com/harrison/greenlight/internal/history"
	"github.com/harrison/greenlight/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded review results",
		Long: `Show review results recorded in the history database.

Without --task the most recent reviews across all tasks are listed,
newest first. With --task every review iteration for that task is shown
in order, which exposes how the verdict evolved across the loop.

The database path comes from --db, or from history_db in the config
file when the flag is not set.

Examples:
  # Recent reviews
  greenlight history --db reviews.db

  # Limit the listing
  greenlight history --db reviews.db --limit 5

  # Full review trajectory for one task
  greenlight history --db reviews.db --task auth-service`,
		RunE: historyCommand,
	}

	cmd.Flags().String("db", "", "Path to the review history database")
	cmd.Flags().String("config", "", "Path to config file (default: .greenlight/config.yaml)")
	cmd.Flags().String("task", "", "Show all reviews for this task")
	cmd.Flags().Int("limit", 20, "Maximum number of recent reviews to show")

	return cmd
}

// historyCommand is the main logic for the history command
func historyCommand(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveHistoryDB(cmd)
	if err != nil {
		return err
	}

	// Opening a store creates the database file, which is wrong for a
	// read-only listing. Require the file to exist.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("history database not found at %s", dbPath)
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	task, _ := cmd.Flags().GetString("task")
	limit, _ := cmd.Flags().GetInt("limit")

	var reviews []*models.ReviewResult
	if task != "" {
		reviews, err = store.GetByTask(cmd.Context(), task)
	} else {
		reviews, err = store.Recent(cmd.Context(), limit)
	}
	if err != nil {
		return fmt.Errorf("failed to read review history: %w", err)
	}

	printReviews(cmd.OutOrStdout(), reviews)
	return nil
}

// resolveHistoryDB picks the database path: the --db flag wins, then the
// config file's history_db setting.
func resolveHistoryDB(cmd *cobra.Command) (string, error) {
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		return dbPath, nil
	}

	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.HistoryDB == "" {
		return "", fmt.Errorf("no history database configured: set --db or history_db in the config file")
	}
	return cfg.HistoryDB, nil
}

func printReviews(out io.Writer, reviews []*models.ReviewResult) {
	if len(reviews) == 0 {
		fmt.Fprintf(out, "No reviews recorded.\n")
		return
	}

	for _, r := range reviews {
		fmt.Fprintf(out, "%s  %-16s #%d  %-10s quality=%.2f gaps=%d\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.TaskID, r.Iteration,
			r.Decision, r.QualityScore, len(r.Gaps))
		if r.Decision != models.DecisionApproved && r.Reasoning != "" {
			fmt.Fprintf(out, "    %s\n", r.Reasoning)
		}
	}
}
