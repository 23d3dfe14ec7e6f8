package cmd

import (
	"fmt"
	"io"

	"github.com/harrison/greenlight/internal/capability"
	"github.com/spf13/cobra"
)

// NewCriteriaCommand creates the criteria command
func NewCriteriaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria",
		Short: "List capability sets and their review criteria",
		Long: `List the registered capability sets and the criteria each one runs.

Every agent output is reviewed by exactly one capability set, looked up
by agent ID. The listing shows each criterion's ID, the severity and
category of the gap it raises on failure, and what it checks.

Examples:
  # All capability sets
  greenlight criteria

  # A single capability set
  greenlight criteria --agent taskplan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, _ := cmd.Flags().GetString("agent")
			return listCriteria(capability.Builtin(), agent, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("agent", "", "Show only the capability set for this agent")

	return cmd
}

// listCriteria writes the capability listing for one agent, or for every
// registered agent when agent is empty.
func listCriteria(registry *capability.Registry, agent string, output io.Writer) error {
	agents := registry.Agents()
	if agent != "" {
		// Resolve first so an unknown agent reports the available sets.
		if _, err := registry.Get(agent); err != nil {
			return err
		}
		agents = []string{agent}
	}

	for i, id := range agents {
		set, err := registry.Get(id)
		if err != nil {
			return err
		}

		if i > 0 {
			fmt.Fprintf(output, "\n")
		}
		fmt.Fprintf(output, "%s: %s\n", set.Agent, set.Description)
		for _, crit := range set.Criteria {
			fmt.Fprintf(output, "  %-24s %-8s %-10s %s\n", crit.ID, crit.Severity, crit.Category, crit.Name)
		}
	}

	return nil
}
