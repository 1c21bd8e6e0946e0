package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/servicedesk/internal/bootstrap"
)

var (
	workingFrom string
	workingTo   string
)

var workingDaysCmd = &cobra.Command{
	Use:   "working-days",
	Short: "Count working days between two dates",
	Long: `Count the working days after --from up to and including --to, skipping
weekends and stored holidays. This is the number the SLA clock compares against
thresholds.`,
	RunE: runWorkingDays,
}

func init() {
	workingDaysCmd.Flags().StringVar(&workingFrom, "from", "", "Start date, YYYY-MM-DD")
	workingDaysCmd.Flags().StringVar(&workingTo, "to", "", "End date, YYYY-MM-DD")
	_ = workingDaysCmd.MarkFlagRequired("from")
	_ = workingDaysCmd.MarkFlagRequired("to")
}

func runWorkingDays(cmd *cobra.Command, _ []string) error {
	return withContainer(cmd.Context(), func(c *bootstrap.Container) error {
		loc := c.Clock.Location()
		from, err := time.ParseInLocation(time.DateOnly, workingFrom, loc)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to, err := time.ParseInLocation(time.DateOnly, workingTo, loc)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		holidays, err := c.Holidays.ListHolidayDates(cmd.Context())
		if err != nil {
			return err
		}
		days := c.Clock.ElapsedWorkingDays(from, to, holidays)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"from":         workingFrom,
				"to":           workingTo,
				"working_days": days,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), days)
		return nil
	})
}
