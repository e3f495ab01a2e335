package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command
func NewCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the session files",
		Long: `Parse every record of the log and the scratch file.
The first malformed record is reported with its record number.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			paths := a.tracker.Paths()

			history, err := a.tracker.History()
			if err != nil {
				return fmt.Errorf("log is invalid: %w", err)
			}
			fmt.Fprintf(out, "Log: %s (%s)\n", paths.Log, sessionsText(len(history)))

			if !a.tracker.IsActive() {
				fmt.Fprintln(out, "Active: none")
				return nil
			}

			session, err := a.tracker.Status()
			if err != nil {
				return fmt.Errorf("scratch file is invalid: %w", err)
			}
			fmt.Fprintf(out, "Active: %s (started %s)\n", paths.Active, value(session.Start.Format(clockLayout)))
			return nil
		},
	}
}
