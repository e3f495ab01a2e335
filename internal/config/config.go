package config

import (
	"github.com/strrl/dw/internal/sessions"
)

// Config is the dw configuration
type Config struct {
	DataDir    string        `mapstructure:"data_dir"`
	LogFile    string        `mapstructure:"log_file"`
	ActiveFile string        `mapstructure:"active_file"`
	Report     ReportConfig  `mapstructure:"report"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// ReportConfig holds defaults for the report and browse commands
type ReportConfig struct {
	Days int    `mapstructure:"days"`
	By   string `mapstructure:"by"`
}

// LoggingConfig controls diagnostic logging (never the command output)
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Pretty bool   `mapstructure:"pretty"`
}

// DefaultConfig returns the defaults; DataDir is filled in by the loader
func DefaultConfig() *Config {
	return &Config{
		LogFile:    ".dw.csv",
		ActiveFile: ".dw.tmp",
		Report: ReportConfig{
			Days: 7,
			By:   "day",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Pretty: true,
		},
	}
}

// Paths returns the session files described by the config
func (c *Config) Paths() sessions.Paths {
	return sessions.PathsIn(c.DataDir, c.LogFile, c.ActiveFile)
}
