package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DW_DATA_DIR
const EnvPrefix = "DW"

// Loader handles configuration loading
type Loader struct {
	configPath string
	homeDir    func() (string, error)
}

// NewLoader creates a new config loader.
// An empty configPath means ~/.dw.json.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		homeDir:    os.UserHomeDir,
	}
}

// Load reads the optional config file and environment overrides
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.path()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")

	// Defaults make every key known to viper, so env overrides apply
	// even without a config file
	defaults := DefaultConfig()
	v.SetDefault("data_dir", "")
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("active_file", defaults.ActiveFile)
	v.SetDefault("report.days", defaults.Report.Days)
	v.SetDefault("report.by", defaults.Report.By)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.pretty", defaults.Logging.Pretty)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Session files live in the home directory unless configured
	if cfg.DataDir == "" {
		home, err := l.homeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = home
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.path()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) path() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	home, err := l.homeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".dw.json"), nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if c.LogFile == "" || c.ActiveFile == "" {
		return errors.New("log_file and active_file must not be empty")
	}
	if filepath.Base(c.LogFile) != c.LogFile || filepath.Base(c.ActiveFile) != c.ActiveFile {
		return errors.New("log_file and active_file must be file names, use data_dir for the directory")
	}
	if c.LogFile == c.ActiveFile {
		return errors.New("log_file and active_file must differ")
	}
	if c.Report.Days < 1 {
		return fmt.Errorf("report.days must be positive, got %d", c.Report.Days)
	}
	return nil
}
