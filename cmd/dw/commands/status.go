package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dw/internal/sessions"
	"github.com/strrl/dw/internal/tui"
	"github.com/strrl/dw/pkg/models"
)

// NewStatusCommand creates the status command
func NewStatusCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Long: `Show the start time and elapsed time of the active session.
With --watch the elapsed time keeps updating until the session is stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			session, err := a.tracker.Status()
			if errors.Is(err, sessions.ErrNoActiveSession) {
				fmt.Fprintln(out, "No active deep work session")
				return nil
			}
			if err != nil {
				return err
			}

			if watch {
				return runWatch(cmd, a, session)
			}

			printStart(out, session)
			printElapsed(out, session.Elapsed(a.tracker.Now()))
			printDetails(out, session)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep updating until the session is stopped")

	return cmd
}

func runWatch(cmd *cobra.Command, a *app, session models.Session) error {
	watcher, err := sessions.NewActiveWatcher(a.tracker.Paths().Active, a.log.Component("watcher"))
	if err != nil {
		return fmt.Errorf("failed to watch session: %w", err)
	}
	defer watcher.Stop()

	stopped, err := tui.RunWatch(session, watcher.Ended(), a.tracker.Now())
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if stopped {
		fmt.Fprintln(cmd.OutOrStdout(), "The deep work session was stopped")
	}
	return nil
}
