// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// loom is a terminal dashboard for a fleet of agent loops. The left
// pane draws the fleet as a force-directed graph; the right pane is a
// chat terminal scoped to the selected loop.
//
// The chat and key validation endpoints are served by loom-relay (or
// any server speaking the same protocol). The Anthropic API key is
// kept in an age-sealed store under paths.state and is managed with
// --set-key and --clear-key, which run without the TUI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/loomworks/loom/cmd/loom/cli"
	"github.com/loomworks/loom/lib/config"
	"github.com/loomworks/loom/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

type options struct {
	configPath string
	graphPath  string
	logOutput  string
	keyFile    string
	setKey     bool
	clearKey   bool
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("loom", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to loom.yaml or loom.toml (default: $LOOM_CONFIG, else built-in defaults)")
	flagSet.StringVar(&opts.graphPath, "graph", "", "fleet snapshot to display (.json, .jsonc, optionally .zst or .lz4 compressed)")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "write JSON log records to this file (overrides log.output)")
	flagSet.BoolVar(&opts.setKey, "set-key", false, "validate and store an Anthropic API key, then exit")
	flagSet.StringVar(&opts.keyFile, "key-file", "", "read the key for --set-key from this file (\"-\" for stdin)")
	flagSet.BoolVar(&opts.clearKey, "clear-key", false, "remove the stored API key, then exit")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetOutput(os.Stderr)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return cli.Validation("%w", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if *showVersion {
		version.Print(os.Stdout, "loom")
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return cli.Validation("unexpected argument: %s", rest[0])
	}
	if opts.setKey && opts.clearKey {
		return cli.Validation("--set-key and --clear-key cannot be combined")
	}
	if opts.keyFile != "" && !opts.setKey {
		return cli.Validation("--key-file requires --set-key")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	level, err := cli.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.setKey || opts.clearKey {
		return runKeyCommand(ctx, cfg, opts, cli.NewCommandLogger(level))
	}
	return runDashboard(ctx, cfg, opts, level)
}

// loadConfig reads --config, then $LOOM_CONFIG, and falls back to the
// defaults when neither names a file.
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
		return nil, cli.Validation("%w", err).
			WithHint("Check the file named by --config or LOOM_CONFIG.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Loom: a graph of your agent loops beside a chat terminal.

Usage:
  loom [flags]

Examples:
  # Show a fleet snapshot
  loom --graph fleet.json

  # Store an API key, prompting for it
  loom --set-key

  # Store an API key read from a file
  loom --set-key --key-file ~/.config/anthropic.key

Keys:
  tab      switch between the graph and the terminal
  /        search loops by name
  f, r     toggle the exceptional filter, cycle the rig filter
  ctrl+c   cancel the running reply, or quit when idle

Flags:
`)
	flagSet.PrintDefaults()
}
