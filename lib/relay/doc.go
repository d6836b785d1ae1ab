// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay serves the chat and key-validation endpoints the
// dashboard talks to, forwarding to the Anthropic Messages API.
//
// POST /api/claude/chat takes {apiKey, messages, loopContext} and
// answers with an event stream of "data: {...}" records: one text
// record per upstream delta, then a done record. A failure after the
// stream has started is sent as an error record, since the status
// line is already written. Failures before that are JSON {error}
// bodies with a 4xx or 5xx status.
//
// POST /api/claude/validate takes {apiKey} and answers {valid, error}
// after a one-token completion with that key.
//
// The relay holds no credentials. Every upstream request carries the
// key its caller sent.
package relay
