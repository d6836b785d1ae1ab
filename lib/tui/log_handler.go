// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// LogRecordMsg carries a slog record into a bubbletea model for the
// status bar.
type LogRecordMsg struct {
	// Summary is "message (key=value, ...)".
	Summary string

	// Structured is the whole record as a JSON object.
	Structured string

	Level slog.Level
}

// LogFadeMsg clears a displayed log record.
type LogFadeMsg struct{}

// LogFadeDelay is how long a record stays in the status bar.
const LogFadeDelay = 5 * time.Second

// FadeAfterDelay returns a command that delivers LogFadeMsg after
// LogFadeDelay.
func FadeAfterDelay() tea.Cmd {
	return tea.Tick(LogFadeDelay, func(time.Time) tea.Msg { return LogFadeMsg{} })
}

// Sender receives messages from outside the update loop. *tea.Program
// satisfies it.
type Sender interface {
	Send(tea.Msg)
}

type senderBox struct{ sender Sender }

// LogHandler is a slog.Handler that forwards records at or above its
// level to a bubbletea program as LogRecordMsg. Records arriving before
// SetSender are dropped. Handlers derived with WithAttrs and WithGroup
// share the sender, so one SetSender call covers all of them.
type LogHandler struct {
	level  slog.Level
	sender *atomic.Pointer[senderBox]
	attrs  []slog.Attr
	groups []string
}

// NewLogHandler returns a handler that forwards records at or above
// level.
func NewLogHandler(level slog.Level) *LogHandler {
	return &LogHandler{
		level:  level,
		sender: &atomic.Pointer[senderBox]{},
	}
}

// SetSender installs the receiver of log messages. Safe to call from
// any goroutine.
func (handler *LogHandler) SetSender(sender Sender) {
	if sender == nil {
		handler.sender.Store(nil)
		return
	}
	handler.sender.Store(&senderBox{sender: sender})
}

func (handler *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

func (handler *LogHandler) Handle(_ context.Context, record slog.Record) error {
	box := handler.sender.Load()
	if box == nil {
		return nil
	}

	var parts []string
	fields := map[string]any{
		"time":  record.Time.Format(time.RFC3339),
		"level": record.Level.String(),
		"msg":   record.Message,
	}
	add := func(key string, value slog.Value) {
		parts = append(parts, fmt.Sprintf("%s=%s", key, value))
		fields[key] = value.String()
	}
	for _, attr := range handler.attrs {
		add(attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		add(handler.qualify(attr.Key), attr.Value)
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	structured, err := json.Marshal(fields)
	if err != nil {
		structured = fmt.Appendf(nil, `{"msg":%q,"error":"marshal failed"}`, record.Message)
	}

	// Records logged from inside the update loop would block on a
	// synchronous Send, so delivery runs on its own goroutine.
	message := LogRecordMsg{
		Summary:    summary,
		Structured: string(structured),
		Level:      record.Level,
	}
	go box.sender.Send(message)
	return nil
}

func (handler *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	qualified := make([]slog.Attr, len(attrs))
	for index, attr := range attrs {
		qualified[index] = slog.Attr{Key: handler.qualify(attr.Key), Value: attr.Value}
	}
	return &LogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  append(slices.Clone(handler.attrs), qualified...),
		groups: slices.Clone(handler.groups),
	}
}

func (handler *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	return &LogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  slices.Clone(handler.attrs),
		groups: append(slices.Clone(handler.groups), name),
	}
}

// qualify prefixes key with the open groups.
func (handler *LogHandler) qualify(key string) string {
	if len(handler.groups) == 0 {
		return key
	}
	return strings.Join(handler.groups, ".") + "." + key
}
