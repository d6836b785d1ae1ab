// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm is a small client for text conversations with the
// Anthropic Messages API.
//
// [Provider] offers blocking completion and streaming. [Anthropic]
// implements it over a caller-supplied [http.Client]. Each [Request]
// carries its own API key, since the relay forwards the key its
// caller supplied rather than holding one of its own.
//
// Streaming uses Server-Sent Events, parsed by [SSEScanner]. An
// [EventStream] yields text deltas as they arrive and accumulates the
// complete [Response].
package llm
