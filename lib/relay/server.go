// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// ListenAddress is a TCP address such as "127.0.0.1:5151".
	ListenAddress string
	Handler       http.Handler
	Logger        *slog.Logger
}

// Server runs a Handler on a TCP listener.
type Server struct {
	listenAddress string
	httpServer    *http.Server
	listener      net.Listener
	logger        *slog.Logger
}

// NewServer returns a stopped Server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.ListenAddress == "" {
		return nil, errors.New("relay: listen address is required")
	}
	if config.Handler == nil {
		return nil, errors.New("relay: handler is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		listenAddress: config.ListenAddress,
		// No WriteTimeout: chat streams run as long as the reply.
		httpServer: &http.Server{
			Handler:           config.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Start listens and serves in the background.
func (server *Server) Start() error {
	listener, err := net.Listen("tcp", server.listenAddress)
	if err != nil {
		return fmt.Errorf("relay: listening on %s: %w", server.listenAddress, err)
	}
	server.listener = listener
	server.logger.Info("relay started", "address", listener.Addr().String())

	go func() {
		if err := server.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.logger.Error("relay server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (server *Server) Addr() string {
	if server.listener == nil {
		return ""
	}
	return server.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for open streams
// until ctx is done.
func (server *Server) Shutdown(ctx context.Context) error {
	server.logger.Info("shutting down relay")
	return server.httpServer.Shutdown(ctx)
}
