// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the terminal session engine behind the loop
// terminal pane.
//
// A [Controller] turns one submitted line into one of three things:
// a built-in response (clear, help, status, context), the response of
// an external [Handler], or a streamed chat reply. It owns the visible
// lines, the conversation transcript sent with each chat request, the
// command history, and the cancellation of the request in flight.
//
// Only one command is in flight at a time. A submission while another
// is being handled is ignored and leaves no trace. Built-ins complete
// synchronously; handler and chat commands block Execute until they
// finish, so hosts run Execute off their event loop and redraw from
// the [Config.OnChange] callback.
//
// Chat failures follow a fixed taxonomy. A missing API key is one
// error line. A transport or stream failure removes the partial
// streaming line and adds one error line. Cancellation is not an
// error: the partial reply is kept with a "[Cancelled]" marker.
//
// All state is per Controller. Nothing is shared between sessions.
package session
