// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/loomworks/loom/cmd/loom/cli"
	"github.com/loomworks/loom/lib/chatstream"
	"github.com/loomworks/loom/lib/config"
	"github.com/loomworks/loom/lib/dashboard"
	"github.com/loomworks/loom/lib/graph"
	"github.com/loomworks/loom/lib/graphview"
	"github.com/loomworks/loom/lib/keystore"
	"github.com/loomworks/loom/lib/layout"
	"github.com/loomworks/loom/lib/session"
	"github.com/loomworks/loom/lib/tui"
)

// tuiLogLevel is the lowest level shown in the status bar. Lower
// levels only reach --log-output.
const tuiLogLevel = slog.LevelWarn

func runDashboard(ctx context.Context, cfg *config.Config, opts options, level slog.Level) error {
	logs := tui.NewLogHandler(tuiLogLevel)
	var handler slog.Handler = logs

	logOutput := opts.logOutput
	if logOutput == "" {
		logOutput = cfg.Log.Output
	}
	if logOutput != "" {
		fileHandler, closeFile, err := cli.OpenFileLogHandler(logOutput, level)
		if err != nil {
			return cli.Validation("cannot open log file %s: %w", logOutput, err)
		}
		defer closeFile()
		handler = cli.FanoutHandler{logs, fileHandler}
	}
	logger := slog.New(handler)

	snapshot, err := loadSnapshot(opts.graphPath)
	if err != nil {
		return err
	}
	viewConfig, err := buildViewConfig(cfg, logger)
	if err != nil {
		return err
	}

	services, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	return dashboard.Run(ctx, dashboard.Config{
		View:     graphview.New(viewConfig),
		Snapshot: snapshot,
		Session: session.Config{
			Chat:   services.chat,
			Keys:   services.keys,
			Logger: logger.With("component", "session"),
		},
		Logger: logger,
	}, logs)
}

func loadSnapshot(path string) (graph.Snapshot, error) {
	if path == "" {
		return graph.Snapshot{}, nil
	}
	snapshot, err := graph.ReadFile(path)
	if err != nil {
		return graph.Snapshot{}, cli.Validation("cannot load fleet snapshot: %w", err).
			WithHint("The snapshot is a JSON object with \"nodes\" and \"links\" arrays.")
	}
	return *snapshot, nil
}

// buildViewConfig maps the layout, view and clusters sections onto
// the graph view's settings.
func buildViewConfig(cfg *config.Config, logger *slog.Logger) (graphview.Config, error) {
	center, zoom, err := cfg.ViewDurations()
	if err != nil {
		return graphview.Config{}, cli.Validation("%w", err)
	}

	viewConfig := graphview.DefaultConfig()
	viewConfig.Logger = logger.With("component", "graphview")
	viewConfig.MinZoom = cfg.View.MinZoom
	viewConfig.MaxZoom = cfg.View.MaxZoom
	viewConfig.LabelZoom = cfg.View.LabelZoom
	viewConfig.CenterDuration = center
	viewConfig.ZoomDuration = zoom
	viewConfig.DragEnabled = cfg.View.DragEnabled

	settings := &viewConfig.Layout
	settings.ChargeStrength = cfg.Layout.ChargeStrength
	settings.ChargeDistanceMax = cfg.Layout.ChargeDistanceMax
	settings.LinkDistance = cfg.Layout.LinkDistance
	settings.CollideRadius = cfg.Layout.CollideRadius
	settings.CenterStrength = cfg.Layout.CenterStrength
	settings.ClusterGain = cfg.Layout.ClusterGain
	settings.AlphaDecay = cfg.Layout.AlphaDecay
	settings.VelocityDecay = cfg.Layout.VelocityDecay
	settings.WarmupTicks = cfg.Layout.WarmupTicks
	settings.CooldownTicks = cfg.Layout.CooldownTicks

	settings.Anchors = make(layout.Anchors, len(cfg.Clusters))
	for index, cluster := range cfg.Clusters {
		settings.Anchors[index] = layout.Anchor{
			Group: graph.GroupID(cluster.Group),
			Label: cluster.Label,
			X:     cluster.X,
			Y:     cluster.Y,
		}
	}
	return viewConfig, nil
}

// services are the endpoint client and key store shared by the
// dashboard and the key commands.
type services struct {
	store *keystore.FileStore
	chat  *chatstream.Client
	keys  *keystore.KeyManager
}

func openServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	timeout, err := cfg.EndpointTimeout()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	store, err := keystore.OpenFileStore(cfg.Paths.State)
	if err != nil {
		return nil, cli.Internal("opening key store: %w", err).
			WithHint("Check that paths.state is a writable directory.")
	}
	chat := chatstream.NewClient(chatstream.ClientConfig{
		ChatURL:         cfg.Endpoints.Chat,
		ValidateURL:     cfg.Endpoints.Validate,
		ValidateTimeout: timeout,
		Logger:          logger.With("component", "chatstream"),
	})
	keys, err := keystore.NewKeyManager(keystore.ManagerConfig{
		Store:     store,
		Validator: chat,
		Logger:    logger.With("component", "keystore"),
	})
	if err != nil {
		store.Close()
		return nil, cli.Internal("loading API key: %w", err)
	}
	return &services{store: store, chat: chat, keys: keys}, nil
}

func (services *services) Close() {
	services.keys.Close()
	services.store.Close()
}
