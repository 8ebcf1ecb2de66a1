package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the diagnostic logger. The TUI owns the terminal, so
// records go to the configured file or nowhere. The returned close func is
// never nil.
func NewLogger(cfg Log) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}
