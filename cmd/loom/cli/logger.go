// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// NewCommandLogger creates a logger writing to stderr. When stderr is
// a terminal it uses slog.TextHandler for human-readable output;
// otherwise slog.JSONHandler, so piped output stays machine-parseable.
func NewCommandLogger(level slog.Level) *slog.Logger {
	return slog.New(newStderrHandler(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level))
}

func newStderrHandler(writer io.Writer, terminal bool, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.NewTextHandler(writer, options)
	}
	return slog.NewJSONHandler(writer, options)
}

// ParseLevel maps a config log level name to a slog level. The empty
// string is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, Validation("unknown log level %q", name).
		WithHint("Use one of debug, info, warn, error.")
}

// OpenFileLogHandler creates a JSON handler writing to path at level.
// The file is created or truncated; close releases it.
func OpenFileLogHandler(path string, level slog.Level) (handler slog.Handler, close func(), err error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: opening log file: %w", err)
	}
	return slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}), func() { file.Close() }, nil
}

// FanoutHandler sends each record to every handler enabled for its
// level.
type FanoutHandler []slog.Handler

func (handlers FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(FanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers FanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(FanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
