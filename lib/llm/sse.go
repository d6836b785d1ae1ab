// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is one Server-Sent Event.
type SSEEvent struct {
	// Type is the "event:" field, empty for the default type.
	Type string

	// Data joins the event's "data:" lines with newlines.
	Data string
}

// SSEScanner reads Server-Sent Events from an [io.Reader].
//
// Events end at a blank line. "data:" lines carry the payload and
// "event:" names the type; comments and other fields are ignored. A
// final event without its terminating blank line is still returned.
//
//	scanner := NewSSEScanner(reader)
//	for scanner.Next() {
//	    event := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type SSEScanner struct {
	reader  *bufio.Reader
	current SSEEvent
	err     error
}

// NewSSEScanner returns a scanner over reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return &SSEScanner{reader: bufio.NewReaderSize(reader, 64*1024)}
}

// Next advances to the next event. It returns false at the end of the
// stream or on error; [SSEScanner.Err] tells them apart.
func (scanner *SSEScanner) Next() bool {
	scanner.current = SSEEvent{}
	if scanner.err != nil {
		return false
	}

	var dataLines []string
	var eventType string
	hasData := false

	emit := func() bool {
		scanner.current = SSEEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
		return true
	}

	for {
		line, err := scanner.reader.ReadString('\n')
		if err != nil && line == "" {
			scanner.err = err
			if err == io.EOF && hasData {
				return emit()
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				return emit()
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if hasColon {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

// Event returns the event read by the last successful Next.
func (scanner *SSEScanner) Event() SSEEvent {
	return scanner.current
}

// Err returns the first error, or nil after a clean end of stream.
func (scanner *SSEScanner) Err() error {
	if scanner.err == io.EOF {
		return nil
	}
	return scanner.err
}
