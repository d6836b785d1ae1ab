// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph is the node/link model shared by the layout engine and
// the graph view.
//
// A [Snapshot] is what callers supply on every data refresh: the full
// node and link lists, decoded from JSON where a link endpoint may be
// either a bare node id or an object carrying an "id" field. [New]
// indexes a snapshot into an immutable [Graph] that answers the
// questions rendering needs on every pass: resolved links (dangling
// references dropped), closed neighborhoods, the exceptional subgraph,
// and the groups present.
//
// Graph never mutates the snapshot it was built from. Positions live
// in the layout engine's own table; the X/Y/FX/FY fields on [Node] are
// only an input seed and an export format.
package graph
