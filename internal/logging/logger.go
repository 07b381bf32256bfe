// Package logging builds the slog loggers used across agentchat.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// New creates a text logger writing to w.
// The "error" key is normalised to "err".
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Level maps the verbose flag to a log level.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Open returns a logger for the chat client. The TUI owns the terminal,
// so logs go to path when set and are discarded otherwise. The returned
// close function must be called on exit.
func Open(path string, verbose bool) (*slog.Logger, func() error, error) {
	if path == "" {
		return NewNop(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, Level(verbose)), f.Close, nil
}

// NewStderr returns a logger for commands that do not take over the
// terminal, such as serve-dev.
func NewStderr(verbose bool) *slog.Logger {
	return New(os.Stderr, Level(verbose))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
