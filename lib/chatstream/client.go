// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const readChunkSize = 4096

// StatusError is returned when an endpoint answers with a non-2xx
// status. Message is the body's "error" field, or a generic message
// when the body carries none.
type StatusError struct {
	StatusCode int
	Message    string
}

func (err *StatusError) Error() string { return err.Message }

// StreamError is an "error" record received inside a chat stream.
type StreamError struct {
	Message string
}

func (err *StreamError) Error() string { return err.Message }

// ClientConfig configures a Client.
type ClientConfig struct {
	ChatURL     string
	ValidateURL string

	// HTTPClient defaults to a client with no overall timeout, since
	// chat streams are bounded by context cancellation.
	HTTPClient *http.Client

	// ValidateTimeout bounds validation calls. Zero means 15 seconds.
	ValidateTimeout time.Duration

	Logger *slog.Logger
}

// Client calls the chat and validation endpoints.
type Client struct {
	chatURL         string
	validateURL     string
	httpClient      *http.Client
	validateTimeout time.Duration
	logger          *slog.Logger
}

// NewClient returns a Client.
func NewClient(config ClientConfig) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := config.ValidateTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		chatURL:         config.ChatURL,
		validateURL:     config.ValidateURL,
		httpClient:      httpClient,
		validateTimeout: timeout,
		logger:          logger,
	}
}

// Chat sends request and streams the reply. onText, if non-nil, is
// called with the full accumulated text after every received text
// delta, in receipt order.
//
// Chat always returns the text accumulated so far. When ctx is
// cancelled mid-stream the error wraps ctx.Err(). An "error" record
// yields a *StreamError; a non-2xx response a *StatusError.
func (client *Client) Chat(ctx context.Context, request ChatRequest, onText func(accumulated string)) (string, error) {
	response, err := client.post(ctx, client.chatURL, request, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", readStatusError(response, "Request failed")
	}

	var accumulated bytes.Buffer
	apply := func(record Record) error {
		if record.Text != "" {
			accumulated.WriteString(record.Text)
			if onText != nil {
				onText(accumulated.String())
			}
		}
		if record.Error != "" {
			return &StreamError{Message: record.Error}
		}
		return nil
	}

	var pending []byte
	chunk := make([]byte, readChunkSize)
	for {
		count, readErr := response.Body.Read(chunk)
		if count > 0 {
			records, remaining, decodeErr := Decode(pending, chunk[:count])
			pending = remaining
			for _, record := range records {
				if err := apply(record); err != nil {
					return accumulated.String(), err
				}
				if record.Done {
					return accumulated.String(), nil
				}
			}
			if decodeErr != nil {
				return accumulated.String(), decodeErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return accumulated.String(), fmt.Errorf("chatstream: chat cancelled: %w", ctxErr)
			}
			return accumulated.String(), fmt.Errorf("chatstream: reading stream: %w", readErr)
		}
	}

	if record, ok := Flush(pending); ok {
		if err := apply(record); err != nil {
			return accumulated.String(), err
		}
	}
	return accumulated.String(), nil
}

// Validate asks the validation endpoint whether apiKey is usable. A
// rejected key is a successful call with Valid false; the error return
// is for transport failures and non-2xx responses.
func (client *Client) Validate(ctx context.Context, apiKey string) (ValidateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, client.validateTimeout)
	defer cancel()

	response, err := client.post(ctx, client.validateURL, ValidateRequest{APIKey: apiKey}, "application/json")
	if err != nil {
		return ValidateResponse{}, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return ValidateResponse{}, readStatusError(response, "Validation failed")
	}

	var verdict ValidateResponse
	if err := json.NewDecoder(response.Body).Decode(&verdict); err != nil {
		return ValidateResponse{}, fmt.Errorf("chatstream: decoding validation response: %w", err)
	}
	return verdict, nil
}

func (client *Client) post(ctx context.Context, endpoint string, body any, accept string) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("chatstream: marshaling request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("chatstream: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", accept)

	response, err := client.httpClient.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("chatstream: request cancelled: %w", ctxErr)
		}
		return nil, fmt.Errorf("chatstream: sending request to %s: %w", endpoint, err)
	}
	client.logger.Debug("endpoint responded", "endpoint", endpoint, "status", response.StatusCode)
	return response, nil
}

// readStatusError decodes an {"error": ...} body into a StatusError.
func readStatusError(response *http.Response, fallback string) error {
	body, _ := io.ReadAll(io.LimitReader(response.Body, 64*1024))
	var decoded ErrorResponse
	if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
		return &StatusError{StatusCode: response.StatusCode, Message: decoded.Error}
	}
	return &StatusError{StatusCode: response.StatusCode, Message: fallback}
}
