// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/loomworks/loom/cmd/loom/cli"
	"github.com/loomworks/loom/lib/config"
	"github.com/loomworks/loom/lib/keystore"
	"github.com/loomworks/loom/lib/secret"
)

// runKeyCommand handles --set-key and --clear-key.
func runKeyCommand(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) error {
	services, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	if opts.clearKey {
		return clearKey(services.keys, os.Stdout)
	}

	key, err := readKey(opts.keyFile)
	if err != nil {
		return err
	}
	defer key.Close()
	return saveKey(ctx, services.keys, key, os.Stdout)
}

func clearKey(keys *keystore.KeyManager, output io.Writer) error {
	if err := keys.Clear(); err != nil {
		return cli.Internal("removing the API key: %w", err)
	}
	fmt.Fprintln(output, "API key removed.")
	return nil
}

func saveKey(ctx context.Context, keys *keystore.KeyManager, key *secret.Buffer, output io.Writer) error {
	if err := keys.ValidateAndSave(ctx, key.String()); err != nil {
		var rejected *keystore.ValidationError
		if errors.As(err, &rejected) {
			if rejected.Err != nil {
				return cli.Transient("%s", rejected.Message).
					WithHint("Check that loom-relay is running at endpoints.validate.")
			}
			return cli.Validation("%s", rejected.Message)
		}
		return cli.Internal("saving the API key: %w", err)
	}
	fmt.Fprintf(output, "API key saved (fingerprint %s).\n", keys.State().Fingerprint)
	return nil
}

// readKey reads the key from path, prompts without echo on a
// terminal, or reads the first line of a piped stdin.
func readKey(path string) (*secret.Buffer, error) {
	if path != "" {
		key, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		return key, nil
	}

	descriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(descriptor) {
		key, err := secret.ReadLine(os.Stdin)
		if err != nil {
			return nil, cli.Validation("%w", err)
		}
		return key, nil
	}

	fmt.Fprint(os.Stderr, "Anthropic API key: ")
	typed, err := term.ReadPassword(descriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, cli.Internal("reading the API key: %w", err)
	}
	key, err := secret.NewFromBytes(typed)
	if err != nil {
		return nil, cli.Validation("API key cannot be empty")
	}
	return key, nil
}
