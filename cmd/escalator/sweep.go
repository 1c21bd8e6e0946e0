package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/servicedesk/internal/bootstrap"
)

var sweepAt string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one escalation sweep",
	Long: `Run the escalation sweep once. Breached tickets move one role up their
escalation path. A sweep already running here or on another instance makes this
command fail without touching tickets.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepAt, "at", "", "Evaluate SLAs as of this RFC3339 instant (default now)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	if sweepAt != "" {
		parsed, err := time.Parse(time.RFC3339, sweepAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = parsed
	}

	return withContainer(cmd.Context(), func(c *bootstrap.Container) error {
		report, err := c.Sweeper.RunEscalationSweep(cmd.Context(), now)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), report)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scanned %d, escalated %d, skipped %d, failed %d\n",
			report.Scanned, report.Escalated, report.Skipped, report.Failed)
		reasons := make([]string, 0, len(report.SkipReasons))
		for reason := range report.SkipReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(out, "  %-24s %d\n", reason, report.SkipReasons[reason])
		}
		return nil
	})
}
