// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func scanAll(t *testing.T, reader io.Reader) ([]SSEEvent, error) {
	t.Helper()
	scanner := NewSSEScanner(reader)
	var events []SSEEvent
	for scanner.Next() {
		events = append(events, scanner.Event())
	}
	return events, scanner.Err()
}

func TestSSEScanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []SSEEvent
	}{
		{
			name:  "typed events",
			input: "event: message_start\ndata: {\"a\":1}\n\nevent: ping\ndata: {}\n\n",
			want:  []SSEEvent{{Type: "message_start", Data: `{"a":1}`}, {Type: "ping", Data: "{}"}},
		},
		{
			name:  "multiple data lines join with newlines",
			input: "data: one\ndata: two\ndata: three\n\n",
			want:  []SSEEvent{{Data: "one\ntwo\nthree"}},
		},
		{
			name:  "comments and unknown fields are ignored",
			input: ": comment\nid: 7\nretry: 100\nevent: test\ndata: hello\n: more\n\n",
			want:  []SSEEvent{{Type: "test", Data: "hello"}},
		},
		{
			name:  "empty data value",
			input: "data:\n\n",
			want:  []SSEEvent{{Data: ""}},
		},
		{
			name:  "blank lines without data produce nothing",
			input: "\n\n\ndata: hello\n\n\n\n",
			want:  []SSEEvent{{Data: "hello"}},
		},
		{
			name:  "event type does not leak past an empty block",
			input: "event: orphan\n\ndata: plain\n\n",
			want:  []SSEEvent{{Data: "plain"}},
		},
		{
			name:  "final event without trailing newline",
			input: "event: final\ndata: last event",
			want:  []SSEEvent{{Type: "final", Data: "last event"}},
		},
		{
			name:  "carriage returns",
			input: "event: test\r\ndata: hello\r\n\r\n",
			want:  []SSEEvent{{Type: "test", Data: "hello"}},
		},
		{
			name:  "value without a space after the colon",
			input: "data:tight\n\n",
			want:  []SSEEvent{{Data: "tight"}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			events, err := scanAll(t, strings.NewReader(test.input))
			if err != nil {
				t.Fatalf("Err() = %v", err)
			}
			if len(events) != len(test.want) {
				t.Fatalf("events = %+v, want %+v", events, test.want)
			}
			for index := range events {
				if events[index] != test.want[index] {
					t.Errorf("event %d = %+v, want %+v", index, events[index], test.want[index])
				}
			}
		})
	}
}

type failingReader struct {
	data string
	err  error
}

func (reader *failingReader) Read(buffer []byte) (int, error) {
	if reader.data == "" {
		return 0, reader.err
	}
	count := copy(buffer, reader.data)
	reader.data = reader.data[count:]
	return count, nil
}

func TestSSEScannerReportsReadErrors(t *testing.T) {
	t.Parallel()

	broken := errors.New("connection reset")
	events, err := scanAll(t, &failingReader{data: "data: first\n\ndata: partial\n", err: broken})
	if len(events) != 1 || events[0].Data != "first" {
		t.Errorf("events = %+v, want only the complete event", events)
	}
	if !errors.Is(err, broken) {
		t.Errorf("Err() = %v, want %v", err, broken)
	}
}
