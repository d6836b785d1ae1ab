// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// loom-relay serves the chat and key validation endpoints the loom
// dashboard consumes, forwarding chat turns to the Anthropic Messages
// API with the caller's key. It holds no keys of its own.
//
// Endpoints:
//
//	POST /api/claude/chat      {apiKey, messages, loopContext} -> data: records
//	POST /api/claude/validate  {apiKey} -> {valid, error}
//	GET  /health
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/loomworks/loom/cmd/loom/cli"
	"github.com/loomworks/loom/lib/config"
	"github.com/loomworks/loom/lib/llm"
	"github.com/loomworks/loom/lib/relay"
	"github.com/loomworks/loom/lib/version"
)

// shutdownGrace bounds how long open chat streams may finish after a
// shutdown signal.
const shutdownGrace = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func run(args []string) error {
	var configPath, listen string
	flagSet := pflag.NewFlagSet("loom-relay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to loom.yaml or loom.toml (default: $LOOM_CONFIG, else built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "TCP address to serve on (overrides relay.listen)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.SetOutput(os.Stderr)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return cli.Validation("%w", err)
	}
	if *showVersion {
		version.Print(os.Stdout, "loom-relay")
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return cli.Validation("unexpected argument: %s", rest[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Relay.Listen = listen
	}
	level, err := cli.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(level).With("component", "relay")

	server, err := newServer(cfg.Relay, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Start(); err != nil {
		return cli.Internal("%w", err)
	}
	return serveUntilDone(ctx, server)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv("LOOM_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newServer(settings config.RelayConfig, logger *slog.Logger) (*relay.Server, error) {
	handler, err := relay.NewHandler(relay.HandlerConfig{
		Provider:  llm.NewAnthropic(&http.Client{}, settings.UpstreamURL),
		Model:     settings.Model,
		MaxTokens: settings.MaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	server, err := relay.NewServer(relay.ServerConfig{
		ListenAddress: settings.Listen,
		Handler:       handler,
		Logger:        logger,
	})
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return server, nil
}

// serveUntilDone waits for ctx, then drains open streams.
func serveUntilDone(ctx context.Context, server *relay.Server) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return cli.Internal("relay shutdown: %w", err)
	}
	return nil
}
