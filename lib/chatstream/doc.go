// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatstream speaks the chat and key-validation protocol
// between the dashboard and its relay.
//
// A chat request carries the API key, the whole conversation, and the
// loop context. The response body is newline-delimited records, each
// a JSON object optionally prefixed with "data: ", carrying a text
// delta, an error, or the end-of-stream marker.
//
// [Decode] is the line decoder: a pure function from a carried-over
// buffer and newly received bytes to parsed records and the new
// buffer. [Flush] makes one last attempt on whatever is left when the
// connection closes. [Client] drives both over HTTP.
package chatstream
