// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds Loom's CBOR configuration for on-disk state.
//
// JSON is the format of every external surface: graph snapshots, the
// chat and validation endpoints, config files. CBOR is used only for
// state Loom writes for itself, currently the key store file. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// logical record always produces the same bytes, which keeps rewrites
// of an unchanged store byte-identical.
//
// Types that only ever live on disk carry `cbor` struct tags.
package codec
