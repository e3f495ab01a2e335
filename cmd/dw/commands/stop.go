package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dw/internal/sessions"
)

// NewStopCommand creates the stop command
func NewStopCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active session and log it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			session, err := a.tracker.Stop()
			if errors.Is(err, sessions.ErrNoActiveSession) {
				fmt.Fprintln(out, "No active deep work session")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Deep work complete!")
			printStart(out, session)
			printStop(out, session)
			printElapsed(out, session.Duration())
			printDetails(out, session)
			return nil
		},
	}
}
