// Package logging sets up the rotating file logger. The UI owns the tty,
// so nothing may ever log to stdout or stderr while the terminal runs.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logging configuration.
type Config struct {
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	Backups   int    `mapstructure:"backups"`
	Level     string `mapstructure:"level"`
}

// DefaultConfig returns the default logging configuration: a 1 MiB log file
// with one rotated backup.
func DefaultConfig() Config {
	return Config{
		File:      "logfile.txt",
		MaxSizeMB: 1,
		Backups:   1,
		Level:     "warn",
	}
}

// Validate checks if the logging configuration is valid.
func (c Config) Validate() error {
	if c.File == "" {
		return fmt.Errorf("log file cannot be empty")
	}
	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("log max size must be positive, got: %d", c.MaxSizeMB)
	}
	if c.Backups < 0 {
		return fmt.Errorf("log backups cannot be negative")
	}
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	return nil
}

// New builds the application logger. verbosity raises the configured level:
// 0 keeps it, 1 forces at least info, 2 or more forces debug. The returned
// closer flushes and releases the log file.
func New(cfg Config, verbosity int) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1 && level > slog.LevelInfo:
		level = slog.LevelInfo
	}

	sink := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.Backups,
	}
	handler := slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})
	return slog.New(handler), sink, nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", name)
	}
}
