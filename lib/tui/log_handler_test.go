// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomworks/loom/lib/testutil"
)

type recordingSender struct {
	messages chan tea.Msg
}

func newRecordingSender() *recordingSender {
	return &recordingSender{messages: make(chan tea.Msg, 16)}
}

func (sender *recordingSender) Send(message tea.Msg) {
	sender.messages <- message
}

// next waits for one delivered record.
func (sender *recordingSender) next(t *testing.T) LogRecordMsg {
	t.Helper()
	message := testutil.RequireReceive(t, sender.messages, 5*time.Second, "waiting for a log record")
	record, ok := message.(LogRecordMsg)
	if !ok {
		t.Fatalf("unexpected message %T", message)
	}
	return record
}

func TestLogHandlerDropsBeforeSender(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(slog.LevelInfo)
	slog.New(handler).Warn("too early")

	sender := newRecordingSender()
	handler.SetSender(sender)
	if pending := len(sender.messages); pending != 0 {
		t.Errorf("%d records delivered, want none", pending)
	}
}

func TestLogHandlerLevelAndSummary(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(slog.LevelWarn)
	sender := newRecordingSender()
	handler.SetSender(sender)

	logger := slog.New(handler).With("loop", "ingest")
	logger.Info("ignored")
	logger.Warn("stream interrupted", "attempt", 2)

	record := sender.next(t)
	if pending := len(sender.messages); pending != 0 {
		t.Errorf("%d extra records delivered", pending)
	}
	if record.Summary != "stream interrupted (loop=ingest, attempt=2)" {
		t.Errorf("Summary = %q", record.Summary)
	}
	if record.Level != slog.LevelWarn {
		t.Errorf("Level = %v", record.Level)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(record.Structured), &fields); err != nil {
		t.Fatalf("Structured is not JSON: %v", err)
	}
	if fields["msg"] != "stream interrupted" || fields["loop"] != "ingest" || fields["attempt"] != "2" {
		t.Errorf("Structured fields = %v", fields)
	}
}

func TestLogHandlerGroupsShareSender(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(slog.LevelInfo)
	derived := slog.New(handler).WithGroup("relay").With("port", 8080)

	sender := newRecordingSender()
	handler.SetSender(sender)
	derived.Info("listening", "tls", false)

	if record := sender.next(t); record.Summary != "listening (relay.port=8080, relay.tls=false)" {
		t.Errorf("Summary = %q", record.Summary)
	}
}
