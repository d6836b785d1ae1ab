// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToolErrorHint(t *testing.T) {
	t.Parallel()

	err := Validation("missing --graph file %q", "fleet.json").
		WithHint("Pass --graph <file> with a snapshot exported by the fleet service.")
	want := "missing --graph file \"fleet.json\"\n\nPass --graph <file> with a snapshot exported by the fleet service."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := fmt.Errorf("startup: %w", err)
	var toolError *ToolError
	if !errors.As(wrapped, &toolError) || toolError.Category != CategoryValidation {
		t.Fatalf("errors.As did not find the validation error in %v", wrapped)
	}
	if Internal("boom").Error() != "boom" {
		t.Error("an error without a hint gained text")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("plain"), 1},
		{"validation", Validation("bad flag"), 2},
		{"wrapped validation", fmt.Errorf("run: %w", Validation("bad flag")), 2},
		{"internal", Internal("disk"), 1},
		{"explicit", &ExitError{Code: 3}, 3},
	}
	for _, test := range tests {
		if got := ExitCode(test.err); got != test.want {
			t.Errorf("%s: ExitCode = %d, want %d", test.name, got, test.want)
		}
	}
	if !Silent(&ExitError{Code: 1}) || Silent(Internal("loud")) {
		t.Error("Silent misclassified an error")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); ExitCode(err) != 2 {
		t.Errorf("ParseLevel(loud) error = %v, want a validation error", err)
	}
}

func TestStderrHandlerFormat(t *testing.T) {
	t.Parallel()

	var text, structured bytes.Buffer
	slog.New(newStderrHandler(&text, true, slog.LevelInfo)).Info("ready", "loops", 3)
	slog.New(newStderrHandler(&structured, false, slog.LevelInfo)).Info("ready", "loops", 3)

	if !strings.Contains(text.String(), "msg=ready loops=3") {
		t.Errorf("text output = %q", text.String())
	}
	var record map[string]any
	if err := json.Unmarshal(structured.Bytes(), &record); err != nil || record["msg"] != "ready" {
		t.Errorf("JSON output = %q (%v)", structured.String(), err)
	}
}

type countingHandler struct {
	level   slog.Level
	records *[]string
}

func (handler countingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

func (handler countingHandler) Handle(_ context.Context, record slog.Record) error {
	*handler.records = append(*handler.records, record.Message)
	return nil
}

func (handler countingHandler) WithAttrs([]slog.Attr) slog.Handler { return handler }
func (handler countingHandler) WithGroup(string) slog.Handler { return handler }

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	t.Parallel()

	var quiet, verbose []string
	logger := slog.New(FanoutHandler{
		countingHandler{level: slog.LevelWarn, records: &quiet},
		countingHandler{level: slog.LevelDebug, records: &verbose},
	})
	logger.Debug("tick")
	logger.Warn("relay slow")

	if strings.Join(quiet, ",") != "relay slow" {
		t.Errorf("warn handler got %q", quiet)
	}
	if strings.Join(verbose, ",") != "tick,relay slow" {
		t.Errorf("debug handler got %q", verbose)
	}
}

func TestOpenFileLogHandler(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loom.jsonl")
	handler, closeFile, err := OpenFileLogHandler(path, slog.LevelDebug)
	if err != nil {
		t.Fatalf("OpenFileLogHandler: %v", err)
	}
	slog.New(handler).Debug("layout settled", "ticks", 50)
	closeFile()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"layout settled"`) {
		t.Errorf("log file = %q", data)
	}
}
