// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Provider is an LLM backend.
type Provider interface {
	// Complete sends a request and blocks until the full response is
	// available.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Stream sends a request and returns an [EventStream]. The caller
	// must Close the stream, even when iteration ends early.
	Stream(ctx context.Context, request Request) (*EventStream, error)
}

// nextFunc yields the next event, or io.EOF at the end.
type nextFunc func() (StreamEvent, error)

// EventStream reads events from a streaming response while
// accumulating the complete [Response]. After Next returns io.EOF,
// [EventStream.Response] holds the result.
//
// Next is not safe for concurrent use.
type EventStream struct {
	next   nextFunc
	closer io.Closer

	mutex    sync.Mutex
	response Response
	text     strings.Builder
	done     bool
}

// NewEventStream returns a stream driven by next, closing closer on
// Close.
func NewEventStream(next nextFunc, closer io.Closer) *EventStream {
	return &EventStream{next: next, closer: closer}
}

// Next returns the next event, or io.EOF when the stream is complete.
//
//	for {
//	    event, err := stream.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // handle event
//	}
func (stream *EventStream) Next() (StreamEvent, error) {
	if stream.done {
		return StreamEvent{}, io.EOF
	}

	event, err := stream.next()
	if err != nil {
		if err == io.EOF {
			stream.done = true
		}
		return event, err
	}

	if event.Type == EventTextDelta {
		stream.mutex.Lock()
		stream.text.WriteString(event.Text)
		stream.mutex.Unlock()
	}
	return event, nil
}

// Response returns what has been accumulated so far.
func (stream *EventStream) Response() Response {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	response := stream.response
	response.Text = stream.text.String()
	return response
}

// Close releases the response body.
func (stream *EventStream) Close() error {
	if stream.closer != nil {
		return stream.closer.Close()
	}
	return nil
}

func (stream *EventStream) setModel(model string) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.response.Model = model
}

func (stream *EventStream) setStopReason(reason StopReason) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.response.StopReason = reason
}

func (stream *EventStream) setInputTokens(count int64) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.response.Usage.InputTokens = count
}

// addOutputTokens accumulates output usage. Anthropic's message_delta
// reports output tokens incrementally.
func (stream *EventStream) addOutputTokens(count int64) {
	stream.mutex.Lock()
	defer stream.mutex.Unlock()
	stream.response.Usage.OutputTokens += count
}

// ProviderError is returned when the API answers with an error status.
type ProviderError struct {
	StatusCode int

	// Type is the provider's error type, such as
	// "authentication_error" or "rate_limit_error".
	Type string

	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsUnauthorized reports a rejected API key (HTTP 401).
func (err *ProviderError) IsUnauthorized() bool {
	return err.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports a rate limit response (HTTP 429).
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// IsOverloaded reports a server overload response (HTTP 529).
func (err *ProviderError) IsOverloaded() bool {
	return err.StatusCode == 529
}

// doProviderRequest POSTs wireRequest as JSON with headers and returns
// the response. A non-200 status becomes a *ProviderError with the
// body closed; otherwise the caller closes the body.
func doProviderRequest(ctx context.Context, httpClient *http.Client, endpoint string, wireRequest any, prefix string, streaming bool, headers http.Header) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	for name, values := range headers {
		for _, value := range values {
			httpRequest.Header.Add(name, value)
		}
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if streaming {
		httpRequest.Header.Set("Accept", "text/event-stream")
	}

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: sending request: %w", prefix, err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}
	return httpResponse, nil
}

// readProviderError parses {"error":{"type":"...","message":"..."}},
// falling back to the raw body.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}
	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
