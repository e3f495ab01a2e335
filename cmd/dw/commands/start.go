package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/strrl/dw/internal/sessions"
)

// NewStartCommand creates the start command
func NewStartCommand(a *app) *cobra.Command {
	var (
		description string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a deep work session",
		Long: `Start a deep work session, optionally with a description and tags.
Nothing happens if a session is already active.`,
		Example: `  dw start -d "write the design doc" -t design -t docs`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			session, err := a.tracker.Start(description, tags)
			if errors.Is(err, sessions.ErrSessionActive) {
				fmt.Fprintln(out, "A deep work session is already active")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Begin deep work!")
			printStart(out, session)
			printDetails(out, session)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "desc", "d", "", "Description of the session")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Tag for the session (repeatable, no spaces)")
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "tags" {
			name = "tag"
		}
		return pflag.NormalizedName(name)
	})

	return cmd
}
