// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package chatstream

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LoopContext describes the loop a session is bound to.
type LoopContext struct {
	LoopID             string `json:"loopId"`
	LoopName           string `json:"loopName"`
	Mode               string `json:"mode,omitempty"`
	Goal               string `json:"goal,omitempty"`
	Status             string `json:"status,omitempty"`
	IterationCount     int    `json:"iterationCount,omitempty"`
	InterventionReason string `json:"interventionReason,omitempty"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	APIKey      string      `json:"apiKey"`
	Messages    []Message   `json:"messages"`
	LoopContext LoopContext `json:"loopContext"`
}

// ValidateRequest is the body of a validation call.
type ValidateRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateResponse is the validation verdict.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Record is one decoded stream record.
type Record struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
	Done  bool   `json:"done,omitempty"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
