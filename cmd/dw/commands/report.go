package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/strrl/dw/internal/sessions"
)

// NewReportCommand creates the report command
func NewReportCommand(a *app) *cobra.Command {
	var (
		days int
		by   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate recent deep work by day or by tag",
		Example: `  dw report
  dw report --days 30 --by tag`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Report.Days
			}
			if !cmd.Flags().Changed("by") {
				by = a.cfg.Report.By
			}
			if days < 1 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			groupBy, err := sessions.ParseGroupBy(by)
			if err != nil {
				return err
			}

			q := sessions.NewReportQuery(a.tracker.Paths().Log, a.tracker.Now(), days, groupBy)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			rows, err := sessions.FetchReportAsync(ctx, q)
			if err != nil {
				if ctx.Err() == context.Canceled {
					return fmt.Errorf("report cancelled")
				}
				return fmt.Errorf("failed to build report: %w", err)
			}

			out := cmd.OutOrStdout()
			since := q.Since.Format(dayLayout)
			if len(rows) == 0 {
				fmt.Fprintf(out, "No deep work recorded since %s\n", since)
				return nil
			}

			fmt.Fprintf(out, "Deep work since %s by %s:\n", since, groupBy)
			width := 0
			for _, row := range rows {
				if len(row.Key) > width {
					width = len(row.Key)
				}
			}
			for _, row := range rows {
				fmt.Fprintf(out, "%-*s  %s, %s\n", width, row.Key, totalText(row.Total()), sessionsText(row.Sessions))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include, counting today")
	cmd.Flags().StringVar(&by, "by", "day", "Group by day or tag")

	return cmd
}
