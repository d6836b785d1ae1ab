// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one text turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Request is a completion request.
type Request struct {
	// APIKey is sent as the x-api-key header.
	APIKey string

	Model     string
	MaxTokens int
	System    string
	Messages  []Message

	Temperature   *float64
	StopSequences []string
}

// StopReason says why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
)

// Usage is token accounting for one response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a complete model reply.
type Response struct {
	Text       string
	Model      string
	StopReason StopReason
	Usage      Usage
}

// EventType classifies a StreamEvent.
type EventType string

const (
	// EventTextDelta carries the next fragment of reply text.
	EventTextDelta EventType = "text_delta"
	// EventPing is a keepalive.
	EventPing EventType = "ping"
	// EventError reports an error inside the stream.
	EventError EventType = "error"
	// EventDone marks the end of the reply.
	EventDone EventType = "done"
)

// StreamEvent is one event from a streaming response.
type StreamEvent struct {
	Type  EventType
	Text  string
	Error error
}
