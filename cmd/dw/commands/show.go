package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewShowCommand creates the show command
func NewShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [date]",
		Short: "List the sessions of a day without TUI",
		Long: `List the completed sessions that started on a day, oldest first.
Without arguments: today
With a date (YYYY-MM-DD): that day`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := a.tracker.Now()
			if len(args) == 1 {
				var err error
				if day, err = parseDay(args[0]); err != nil {
					return err
				}
			}

			daySessions, err := a.tracker.SessionsOn(day)
			if err != nil {
				return fmt.Errorf("failed to fetch sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(daySessions) == 0 {
				fmt.Fprintf(out, "No deep work sessions on %s\n", day.Format(dateLayout))
				return nil
			}

			fmt.Fprintf(out, "Deep work sessions on %s:\n", day.Format(dateLayout))
			fmt.Fprintln(out, strings.Repeat("=", 40))
			for i, session := range daySessions {
				fmt.Fprintf(out, "%d. %s - %s (%s)\n",
					i+1,
					value(session.Start.Format(clockLayout)),
					value(session.Stop.Format(clockLayout)),
					totalText(session.Duration()))
				if session.Description != "" {
					fmt.Fprintf(out, "   Description: %s\n", session.Description)
				}
				if len(session.Tags) > 0 {
					fmt.Fprintf(out, "   Tags: %s\n", strings.Join(session.Tags, " "))
				}
			}
			return nil
		},
	}
}
