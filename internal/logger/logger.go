package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	File   string    // log file path, empty logs to Output
	Pretty bool      // human readable console format
	Output io.Writer // console destination, defaults to stderr
}

// Logger wraps zerolog.Logger and owns the log file, if any
type Logger struct {
	logger zerolog.Logger
	file   *os.File
}

// New creates a new logger.
// Command output goes to stdout, so diagnostics default to stderr.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.WarnLevel
	}

	var (
		writer io.Writer
		file   *os.File
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	} else {
		writer = cfg.Output
		if writer == nil {
			writer = os.Stderr
		}
		if cfg.Pretty {
			writer = zerolog.ConsoleWriter{
				Out:        writer,
				TimeFormat: time.RFC3339,
			}
		}
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
		file:   file,
	}, nil
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Component returns a child logger tagged with the component name
func (l *Logger) Component(name string) zerolog.Logger {
	return l.logger.With().Str("component", name).Logger()
}

// GetZerolog returns the underlying zerolog.Logger
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.logger
}
