package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/strrl/dw/internal/config"
	"github.com/strrl/dw/internal/logger"
	"github.com/strrl/dw/internal/sessions"
)

var version = "0.1.0"

// app carries what the sub-commands share once the root command has
// loaded the configuration
type app struct {
	configPath string
	verbose    bool
	now        func() time.Time

	cfg     *config.Config
	log     *logger.Logger
	tracker *sessions.Tracker
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{now: time.Now})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dw",
		Short: "Track deep work sessions",
		Long: `dw records focused work sessions to a CSV log in your home directory.
Start a session, stop it when you are done, and ask for a summary of the day.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log diagnostics at debug level")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.dw.json)")

	rootCmd.AddCommand(NewStartCommand(a))
	rootCmd.AddCommand(NewStopCommand(a))
	rootCmd.AddCommand(NewStatusCommand(a))
	rootCmd.AddCommand(NewSummaryCommand(a))
	rootCmd.AddCommand(NewReportCommand(a))
	rootCmd.AddCommand(NewBrowseCommand(a))
	rootCmd.AddCommand(NewShowCommand(a))
	rootCmd.AddCommand(NewCheckCommand(a))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(a.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:  level,
		File:   cfg.Logging.File,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.tracker = sessions.NewTracker(cfg.Paths(),
		sessions.WithClock(a.now),
		sessions.WithLogger(log.Component("tracker")),
	)

	zl := log.GetZerolog()
	zl.Debug().
		Str("command", cmd.Name()).
		Str("config", loader.GetConfigPath()).
		Str("log", cfg.Paths().Log).
		Str("active", cfg.Paths().Active).
		Msg("configuration loaded")
	return nil
}

func (a *app) teardown() error {
	if a.log == nil {
		return nil
	}
	return a.log.Close()
}
