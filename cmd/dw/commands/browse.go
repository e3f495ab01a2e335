package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/strrl/dw/internal/db"
	"github.com/strrl/dw/internal/sessions"
	"github.com/strrl/dw/internal/tui"
)

// NewBrowseCommand creates the browse command
func NewBrowseCommand(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse recent deep work interactively",
		Long: `Open an interactive browser listing recent days with their totals.
The sessions of the highlighted day are shown alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.Report.Days
			}

			database, err := db.GetDB()
			if err != nil {
				return err
			}

			executor := sessions.NewAsyncExecutor(database, a.log.Component("report"))
			executor.Start()
			defer executor.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			q := sessions.NewReportQuery(a.tracker.Paths().Log, a.tracker.Now(), days, sessions.GroupByDay)
			if err := tui.ShowBrowser(ctx, executor, q, a.tracker.SessionsOn); err != nil {
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to list, counting today")

	return cmd
}
