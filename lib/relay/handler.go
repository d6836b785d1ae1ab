// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/keystore"
	"github.com/loomworks/loom/lib/llm"
)

const maxRequestBytes = 4 << 20

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Provider  llm.Provider
	Model     string
	MaxTokens int
	Logger    *slog.Logger
}

// Handler serves the relay endpoints.
type Handler struct {
	provider  llm.Provider
	model     string
	maxTokens int
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewHandler returns a Handler. MaxTokens defaults to 1024.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Provider == nil {
		return nil, errors.New("relay: provider is required")
	}
	if config.Model == "" {
		return nil, errors.New("relay: model is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	handler := &Handler{
		provider:  config.Provider,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		logger:    config.Logger,
		mux:       http.NewServeMux(),
	}
	handler.mux.HandleFunc("POST /api/claude/chat", handler.HandleChat)
	handler.mux.HandleFunc("POST /api/claude/validate", handler.HandleValidate)
	handler.mux.HandleFunc("GET /health", handler.HandleHealth)
	return handler, nil
}

// ServeHTTP implements http.Handler.
func (handler *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	handler.mux.ServeHTTP(writer, request)
}

// HandleHealth reports liveness.
func (handler *Handler) HandleHealth(writer http.ResponseWriter, _ *http.Request) {
	handler.writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleChat streams a reply to a conversation.
func (handler *Handler) HandleChat(writer http.ResponseWriter, request *http.Request) {
	startTime := time.Now()

	var chat chatstream.ChatRequest
	if err := decodeBody(request, &chat); err != nil {
		handler.sendError(writer, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(chat.APIKey) == "" {
		handler.sendError(writer, http.StatusBadRequest, "API key is required")
		return
	}
	if len(chat.Messages) == 0 {
		handler.sendError(writer, http.StatusBadRequest, "Messages are required")
		return
	}

	flusher, ok := writer.(http.Flusher)
	if !ok {
		handler.sendError(writer, http.StatusInternalServerError, "streaming not supported")
		return
	}

	messages := make([]llm.Message, 0, len(chat.Messages))
	for _, message := range chat.Messages {
		if message.Role != chatstream.RoleUser && message.Role != chatstream.RoleAssistant {
			handler.sendError(writer, http.StatusBadRequest, fmt.Sprintf("Unknown message role %q", message.Role))
			return
		}
		messages = append(messages, llm.Message{Role: llm.Role(message.Role), Content: message.Content})
	}

	fingerprint := keystore.Fingerprint(chat.APIKey)
	stream, err := handler.provider.Stream(request.Context(), llm.Request{
		APIKey:    chat.APIKey,
		Model:     handler.model,
		MaxTokens: handler.maxTokens,
		System:    SystemPrompt(chat.LoopContext),
		Messages:  messages,
	})
	if err != nil {
		status, message := upstreamFailure(err)
		handler.logger.Warn("chat upstream request failed",
			"loop", chat.LoopContext.LoopID,
			"key", fingerprint,
			"error", err,
		)
		handler.sendError(writer, status, message)
		return
	}
	defer stream.Close()

	writer.Header().Set("Content-Type", "text/event-stream")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.Header().Set("X-Content-Type-Options", "nosniff")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(record chatstream.Record) error {
		encoded, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(writer, "data: %s\n\n", encoded); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	for {
		event, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if request.Context().Err() != nil {
				handler.logger.Debug("chat client went away", "loop", chat.LoopContext.LoopID)
				return
			}
			handler.logger.Warn("chat stream failed", "loop", chat.LoopContext.LoopID, "error", err)
			if sendErr := send(chatstream.Record{Error: streamFailureMessage(err)}); sendErr != nil {
				handler.logger.Warn("writing chat error record", "error", sendErr)
			}
			return
		}

		switch event.Type {
		case llm.EventTextDelta:
			if err := send(chatstream.Record{Text: event.Text}); err != nil {
				handler.logger.Debug("writing chat record", "error", err)
				return
			}
		case llm.EventError:
			handler.logger.Warn("chat stream error event", "loop", chat.LoopContext.LoopID, "error", event.Error)
			if err := send(chatstream.Record{Error: streamFailureMessage(event.Error)}); err != nil {
				handler.logger.Warn("writing chat error record", "error", err)
			}
			return
		}
	}

	if err := send(chatstream.Record{Done: true}); err != nil {
		handler.logger.Debug("writing chat done record", "error", err)
		return
	}

	response := stream.Response()
	handler.logger.Info("chat complete",
		"loop", chat.LoopContext.LoopID,
		"key", fingerprint,
		"messages", len(messages),
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens,
		"stop_reason", response.StopReason,
		"duration", time.Since(startTime),
	)
}

// HandleValidate checks an API key with a one-token completion.
func (handler *Handler) HandleValidate(writer http.ResponseWriter, request *http.Request) {
	var validate chatstream.ValidateRequest
	if err := decodeBody(request, &validate); err != nil {
		handler.writeJSON(writer, http.StatusBadRequest, chatstream.ValidateResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(validate.APIKey) == "" {
		handler.writeJSON(writer, http.StatusBadRequest, chatstream.ValidateResponse{Error: "API key is required"})
		return
	}

	fingerprint := keystore.Fingerprint(validate.APIKey)
	_, err := handler.provider.Complete(request.Context(), llm.Request{
		APIKey:    validate.APIKey,
		Model:     handler.model,
		MaxTokens: 1,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})

	var providerError *llm.ProviderError
	switch {
	case err == nil:
		handler.logger.Info("api key validated", "key", fingerprint)
		handler.writeJSON(writer, http.StatusOK, chatstream.ValidateResponse{Valid: true})
	case errors.As(err, &providerError) && providerError.IsUnauthorized():
		handler.logger.Info("api key rejected", "key", fingerprint)
		handler.writeJSON(writer, http.StatusOK, chatstream.ValidateResponse{Error: "Invalid API key"})
	case errors.As(err, &providerError):
		handler.logger.Warn("api key validation failed upstream", "key", fingerprint, "error", err)
		handler.writeJSON(writer, http.StatusOK, chatstream.ValidateResponse{Error: providerError.Message})
	default:
		handler.logger.Warn("api key validation unreachable", "key", fingerprint, "error", err)
		handler.writeJSON(writer, http.StatusBadGateway, chatstream.ValidateResponse{Error: "Failed to reach the Anthropic API"})
	}
}

// upstreamFailure maps an error from opening the upstream stream to a
// status and user-facing message.
func upstreamFailure(err error) (int, string) {
	var providerError *llm.ProviderError
	if !errors.As(err, &providerError) {
		return http.StatusBadGateway, "Failed to reach the Anthropic API"
	}
	if providerError.IsUnauthorized() {
		return http.StatusUnauthorized, "Invalid API key"
	}
	if providerError.StatusCode >= 400 && providerError.StatusCode < 500 {
		return providerError.StatusCode, providerError.Message
	}
	return http.StatusBadGateway, providerError.Message
}

func streamFailureMessage(err error) string {
	var providerError *llm.ProviderError
	if errors.As(err, &providerError) && providerError.Message != "" {
		return providerError.Message
	}
	return "Stream interrupted"
}

func decodeBody(request *http.Request, value any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxRequestBytes))
	return decoder.Decode(value)
}

func (handler *Handler) sendError(writer http.ResponseWriter, status int, message string) {
	handler.writeJSON(writer, status, chatstream.ErrorResponse{Error: message})
}

// writeJSON encodes value with status. Encoding failures mean the
// client disconnected and are only logged.
func (handler *Handler) writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		handler.logger.Warn("writing JSON response", "error", err, "status", status)
	}
}
