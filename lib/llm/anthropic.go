// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultAnthropicURL is the public Anthropic API.
	DefaultAnthropicURL = "https://api.anthropic.com"

	// AnthropicVersion is sent as the anthropic-version header.
	AnthropicVersion = "2023-06-01"

	anthropicPrefix = "llm/anthropic"
)

// Anthropic implements [Provider] for the Messages API at
// {BaseURL}/v1/messages.
type Anthropic struct {
	httpClient *http.Client
	baseURL    string
}

// NewAnthropic returns a provider. An empty baseURL means
// DefaultAnthropicURL; a nil httpClient means http.DefaultClient.
func NewAnthropic(httpClient *http.Client, baseURL string) *Anthropic {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAnthropicURL
	}
	return &Anthropic{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Complete sends a non-streaming request and returns the full response.
func (provider *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	httpResponse, err := doProviderRequest(ctx, provider.httpClient, provider.endpoint(),
		buildAnthropicRequest(request, false), anthropicPrefix, false, anthropicHeaders(request))
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()

	var wire anthropicResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", anthropicPrefix, err)
	}
	return wire.toResponse(), nil
}

// Stream sends a streaming request and returns an [EventStream].
func (provider *Anthropic) Stream(ctx context.Context, request Request) (*EventStream, error) {
	httpResponse, err := doProviderRequest(ctx, provider.httpClient, provider.endpoint(),
		buildAnthropicRequest(request, true), anthropicPrefix, true, anthropicHeaders(request))
	if err != nil {
		return nil, err
	}
	return newAnthropicEventStream(httpResponse.Body), nil
}

func (provider *Anthropic) endpoint() string {
	return provider.baseURL + "/v1/messages"
}

func anthropicHeaders(request Request) http.Header {
	headers := http.Header{}
	headers.Set("anthropic-version", AnthropicVersion)
	if request.APIKey != "" {
		headers.Set("x-api-key", request.APIKey)
	}
	return headers
}

func buildAnthropicRequest(request Request, stream bool) anthropicRequest {
	wire := anthropicRequest{
		Model:         request.Model,
		MaxTokens:     request.MaxTokens,
		System:        request.System,
		Stream:        stream,
		Temperature:   request.Temperature,
		StopSequences: request.StopSequences,
		Messages:      make([]anthropicMessage, 0, len(request.Messages)),
	}
	for _, message := range request.Messages {
		wire.Messages = append(wire.Messages, anthropicMessage{
			Role:    string(message.Role),
			Content: []anthropicContentBlock{{Type: "text", Text: message.Content}},
		})
	}
	return wire
}

// newAnthropicEventStream parses Anthropic SSE events. Only text
// deltas are surfaced; block boundaries carry nothing a text
// conversation needs.
func newAnthropicEventStream(body io.ReadCloser) *EventStream {
	scanner := NewSSEScanner(body)
	stream := NewEventStream(nil, body)

	stream.next = func() (StreamEvent, error) {
		for {
			if !scanner.Next() {
				if err := scanner.Err(); err != nil {
					return StreamEvent{}, fmt.Errorf("%s: reading SSE: %w", anthropicPrefix, err)
				}
				return StreamEvent{}, io.EOF
			}
			event := scanner.Event()

			switch event.Type {
			case "message_start":
				var envelope struct {
					Message struct {
						Model string         `json:"model"`
						Usage anthropicUsage `json:"usage"`
					} `json:"message"`
				}
				if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
					return StreamEvent{}, fmt.Errorf("%s: parsing message_start: %w", anthropicPrefix, err)
				}
				stream.setModel(envelope.Message.Model)
				stream.setInputTokens(envelope.Message.Usage.InputTokens)

			case "content_block_delta":
				var envelope struct {
					Delta struct {
						Type string `json:"type"`
						Text string `json:"text"`
					} `json:"delta"`
				}
				if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
					return StreamEvent{}, fmt.Errorf("%s: parsing content_block_delta: %w", anthropicPrefix, err)
				}
				if envelope.Delta.Type == "text_delta" && envelope.Delta.Text != "" {
					return StreamEvent{Type: EventTextDelta, Text: envelope.Delta.Text}, nil
				}

			case "message_delta":
				var envelope struct {
					Delta struct {
						StopReason string `json:"stop_reason"`
					} `json:"delta"`
					Usage struct {
						OutputTokens int64 `json:"output_tokens"`
					} `json:"usage"`
				}
				if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
					return StreamEvent{}, fmt.Errorf("%s: parsing message_delta: %w", anthropicPrefix, err)
				}
				stream.setStopReason(StopReason(envelope.Delta.StopReason))
				stream.addOutputTokens(envelope.Usage.OutputTokens)

			case "message_stop":
				return StreamEvent{Type: EventDone}, nil

			case "ping":
				return StreamEvent{Type: EventPing}, nil

			case "error":
				return StreamEvent{Type: EventError, Error: parseStreamError(event.Data)}, nil
			}
			// content_block_start, content_block_stop and unknown
			// event types are skipped.
		}
	}
	return stream
}

func parseStreamError(data string) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(data), &envelope) == nil && envelope.Error.Message != "" {
		return &ProviderError{Type: envelope.Error.Type, Message: envelope.Error.Message}
	}
	return errors.New(anthropicPrefix + ": stream error: " + data)
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	System        string             `json:"system,omitempty"`
	Messages      []anthropicMessage `json:"messages"`
	Stream        bool               `json:"stream,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (wire *anthropicResponse) toResponse() *Response {
	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Response{
		Text:       text.String(),
		Model:      wire.Model,
		StopReason: StopReason(wire.StopReason),
		Usage: Usage{
			InputTokens:  wire.Usage.InputTokens,
			OutputTokens: wire.Usage.OutputTokens,
		},
	}
}
