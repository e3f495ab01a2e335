package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSummaryCommand creates the summary command
func NewSummaryCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total the deep work logged today",
		Long: `Total the completed sessions that started today, in local time.
Use --date to summarize another day. A missing log counts as no deep
work yet and totals zero; an unreadable or malformed log is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := a.tracker.Now()
			if date != "" {
				var err error
				if day, err = parseDay(date); err != nil {
					return err
				}
			}

			summary, err := a.tracker.Summary(day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deep work summary for %s:\n", summary.Date.Format(dateLayout))
			fmt.Fprintf(out, "%s across %s\n", totalText(summary.Total), sessionsText(summary.Sessions))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to summarize (YYYY-MM-DD, default today)")

	return cmd
}
