// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore persists the Anthropic API key and tells interested
// components when it changes.
//
// A [Store] is a small named-value store with change subscriptions.
// [MemoryStore] keeps values in process. [FileStore] keeps them in one
// CBOR file under the state directory, each value sealed with age to a
// local X25519 identity stored beside it at mode 0600. Writes replace
// the file atomically; concurrent writers are last-write-wins.
//
// [KeyManager] is the API key lifecycle on top of a Store: format
// checks, remote validation, save on success, clear, and a
// subscription that reports whether a key is configured. Subscribers
// are called synchronously after each write, so the terminal session
// sees a new or cleared key without polling storage.
//
// Keys are never logged. [Fingerprint] gives a short blake3 digest
// that is safe to log and display.
package keystore
