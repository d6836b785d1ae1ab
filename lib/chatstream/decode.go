// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package chatstream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var (
	dataPrefix = []byte("data:")
	doneMarker = []byte("[DONE]")
)

// Decode appends chunk to buffer, parses every complete line, and
// returns the records and the unterminated remainder. The returned
// remainder does not alias chunk.
//
// Blank lines and SSE comment or field lines other than data are
// skipped. A complete line that is not valid JSON is an error; the
// records parsed before it are still returned.
func Decode(buffer, chunk []byte) ([]Record, []byte, error) {
	pending := make([]byte, 0, len(buffer)+len(chunk))
	pending = append(append(pending, buffer...), chunk...)

	var records []Record
	for {
		newline := bytes.IndexByte(pending, '\n')
		if newline < 0 {
			break
		}
		line := pending[:newline]
		pending = pending[newline+1:]

		record, ok, err := parseLine(line)
		if err != nil {
			return records, pending, err
		}
		if ok {
			records = append(records, record)
		}
	}
	return records, pending, nil
}

// Flush parses a final unterminated line. A remainder that does not
// parse is dropped, not reported.
func Flush(remaining []byte) (Record, bool) {
	record, ok, err := parseLine(remaining)
	if err != nil {
		return Record{}, false
	}
	return record, ok
}

func parseLine(line []byte) (Record, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == ':' {
		return Record{}, false, nil
	}
	if bytes.HasPrefix(line, dataPrefix) {
		line = bytes.TrimSpace(line[len(dataPrefix):])
	} else if isFieldLine(line) {
		return Record{}, false, nil
	}
	if len(line) == 0 {
		return Record{}, false, nil
	}
	if bytes.Equal(line, doneMarker) {
		return Record{Done: true}, true, nil
	}

	var record Record
	if err := json.Unmarshal(line, &record); err != nil {
		return Record{}, false, fmt.Errorf("chatstream: malformed record %q: %w", truncate(line, 80), err)
	}
	return record, true, nil
}

// isFieldLine reports whether line is an SSE field such as "event:"
// or "id:". JSON lines start with '{' and never match.
func isFieldLine(line []byte) bool {
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return false
	}
	for _, character := range line[:colon] {
		if character < 'a' || character > 'z' {
			return false
		}
	}
	return true
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
