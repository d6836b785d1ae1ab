// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the Loom binaries.
//
// Configuration comes from a single file named by the LOOM_CONFIG
// environment variable ([Load]) or a --config flag ([LoadFile]). There
// is no search path and no ~/.config discovery. When neither is given,
// binaries run on [Default].
//
// Files ending in .toml are decoded as TOML; everything else is YAML.
// Both formats use the same field names.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. Production
// defaults are stricter: warn-level logging unless overridden, and
// chat/validation endpoints must use https unless they point at a
// loopback address.
//
// ${HOME}, ${LOOM_ROOT} and ${VAR:-default} are expanded in path
// fields after loading. No other environment variables override
// config values.
//
// This package depends on no other Loom packages; binaries translate
// its sections into layout, view, and relay settings.
package config
