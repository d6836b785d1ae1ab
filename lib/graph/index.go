// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"slices"
)

// Edge is a link whose endpoints both resolved. Source and Target
// index into [Graph.Nodes].
type Edge struct {
	Source int
	Target int
}

// Graph is an indexed, read-only view of a [Snapshot].
type Graph struct {
	nodes     []Node
	index     map[string]int
	edges     []Edge
	adjacency [][]int
	dangling  int
}

// New indexes snapshot. Links naming an unknown node are dropped and
// counted in [Graph.DanglingLinks]. With duplicate node ids the first
// occurrence wins lookups; callers should not rely on that.
func New(snapshot Snapshot) *Graph {
	graph := &Graph{
		nodes:     slices.Clone(snapshot.Nodes),
		index:     make(map[string]int, len(snapshot.Nodes)),
		adjacency: make([][]int, len(snapshot.Nodes)),
	}
	for position, node := range graph.nodes {
		if _, exists := graph.index[node.ID]; !exists {
			graph.index[node.ID] = position
		}
	}

	graph.edges = make([]Edge, 0, len(snapshot.Links))
	for _, link := range snapshot.Links {
		source, sourceOK := graph.index[link.Source.ID]
		target, targetOK := graph.index[link.Target.ID]
		if !sourceOK || !targetOK {
			graph.dangling++
			continue
		}
		graph.edges = append(graph.edges, Edge{Source: source, Target: target})
		graph.adjacency[source] = append(graph.adjacency[source], target)
		if source != target {
			graph.adjacency[target] = append(graph.adjacency[target], source)
		}
	}
	return graph
}

// Len returns the number of nodes.
func (graph *Graph) Len() int { return len(graph.nodes) }

// Nodes returns the node list. Callers must not modify it.
func (graph *Graph) Nodes() []Node { return graph.nodes }

// Edges returns the resolved links. Callers must not modify it.
func (graph *Graph) Edges() []Edge { return graph.edges }

// DanglingLinks returns how many snapshot links were dropped because
// an endpoint did not resolve.
func (graph *Graph) DanglingLinks() int { return graph.dangling }

// Lookup returns the position of id in [Graph.Nodes].
func (graph *Graph) Lookup(id string) (int, bool) {
	position, ok := graph.index[id]
	return position, ok
}

// Node returns the node with the given id.
func (graph *Graph) Node(id string) (Node, bool) {
	position, ok := graph.index[id]
	if !ok {
		return Node{}, false
	}
	return graph.nodes[position], true
}

// Neighbors returns the closed neighborhood of id: the node itself and
// every node linked to it in either direction. An unknown id yields an
// empty set.
func (graph *Graph) Neighbors(id string) IDSet {
	position, ok := graph.index[id]
	if !ok {
		return IDSet{}
	}
	set := IDSet{id: {}}
	for _, neighbor := range graph.adjacency[position] {
		set[graph.nodes[neighbor].ID] = struct{}{}
	}
	return set
}

// Degree returns the number of resolved links touching id.
func (graph *Graph) Degree(id string) int {
	position, ok := graph.index[id]
	if !ok {
		return 0
	}
	return len(graph.adjacency[position])
}

// Exceptional returns the ids of every exceptional node.
func (graph *Graph) Exceptional() IDSet {
	set := IDSet{}
	for _, node := range graph.nodes {
		if node.Exceptional {
			set[node.ID] = struct{}{}
		}
	}
	return set
}

// ExceptionalEdges returns the resolved links whose endpoints are
// both exceptional.
func (graph *Graph) ExceptionalEdges() []Edge {
	var edges []Edge
	for _, edge := range graph.edges {
		if graph.nodes[edge.Source].Exceptional && graph.nodes[edge.Target].Exceptional {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Groups returns the distinct non-empty groups in order of first
// appearance.
func (graph *Graph) Groups() []GroupID {
	seen := make(map[GroupID]bool)
	var groups []GroupID
	for _, node := range graph.nodes {
		if node.Group == "" || seen[node.Group] {
			continue
		}
		seen[node.Group] = true
		groups = append(groups, node.Group)
	}
	return groups
}

// Coordinator returns the first coordinator node, if any.
func (graph *Graph) Coordinator() (Node, bool) {
	for _, node := range graph.nodes {
		if node.IsCoordinator() {
			return node, true
		}
	}
	return Node{}, false
}
