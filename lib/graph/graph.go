// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Role distinguishes the coordinator from ordinary agents.
type Role string

const (
	RoleOrdinary    Role = "ordinary"
	RoleCoordinator Role = "coordinator"
)

// Status is a node's activity state. Unknown values are carried
// through and rendered like [StatusIdle].
type Status string

const (
	StatusActive    Status = "active"
	StatusIdle      Status = "idle"
	StatusBlocked   Status = "blocked"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Node is one rendered agent or entity.
type Node struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role,omitempty"`
	Status Status `json:"status,omitempty"`

	// Group selects the cluster anchor. An empty group uses the
	// fallback anchor.
	Group GroupID `json:"group,omitempty"`

	// ConvoyID groups nodes into a team drawn with a shared ring color.
	ConvoyID string `json:"convoyId,omitempty"`

	// Exceptional flags a node for heightened attention and for the
	// exceptional-only filter.
	Exceptional bool `json:"exceptional,omitempty"`

	// Loop describes the work loop the node runs, when it runs one.
	Loop LoopInfo `json:"loop,omitzero"`

	// X and Y seed the initial position when present. FX and FY pin
	// the node.
	X  *float64 `json:"x,omitempty"`
	Y  *float64 `json:"y,omitempty"`
	FX *float64 `json:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty"`
}

// LoopInfo is the state of a node's work loop as reported by the
// fleet.
type LoopInfo struct {
	Mode               string `json:"mode,omitempty"`
	Goal               string `json:"goal,omitempty"`
	IterationCount     int    `json:"iterationCount,omitempty"`
	InterventionReason string `json:"interventionReason,omitempty"`
}

// IsCoordinator reports whether the node has the coordinator role.
func (node Node) IsCoordinator() bool { return node.Role == RoleCoordinator }

// Label returns the display name, falling back to the id.
func (node Node) Label() string {
	if node.Name != "" {
		return node.Name
	}
	return node.ID
}

// GroupID is a cluster assignment. It decodes from either a JSON
// string or a JSON number, since older data files number their
// clusters.
type GroupID string

// UnmarshalJSON accepts "name", 3, or null.
func (group *GroupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*group = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*group = GroupID(name)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("graph: group must be a string or number, got %s", data)
	}
	*group = GroupID(number.String())
	return nil
}

// Index returns the group as a cluster table index when it is a
// non-negative integer.
func (group GroupID) Index() (int, bool) {
	index, err := strconv.Atoi(string(group))
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// Endpoint is one end of a link. On the wire it is either a node id
// (string or number) or an already-resolved node object with an "id".
type Endpoint struct {
	ID string
}

// UnmarshalJSON accepts "id", 7, or {"id": "..."}.
func (endpoint *Endpoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("graph: empty link endpoint")
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &endpoint.ID)
	case '{':
		var object struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &object); err != nil {
			return err
		}
		if object.ID == nil {
			return fmt.Errorf("graph: link endpoint object has no id")
		}
		return endpoint.UnmarshalJSON(object.ID)
	default:
		var number json.Number
		if err := json.Unmarshal(data, &number); err != nil {
			return fmt.Errorf("graph: link endpoint must be an id or node, got %s", data)
		}
		endpoint.ID = number.String()
		return nil
	}
}

// MarshalJSON writes the endpoint as a bare id.
func (endpoint Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(endpoint.ID)
}

// Link is a relationship between two nodes.
type Link struct {
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
}

// NewLink returns a link between two node ids.
func NewLink(source, target string) Link {
	return Link{Source: Endpoint{ID: source}, Target: Endpoint{ID: target}}
}

// Snapshot is a whole graph as supplied by the caller.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// IDSet is a set of node ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set. A nil set contains nothing.
func (set IDSet) Has(id string) bool {
	_, ok := set[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (set IDSet) Sorted() []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Equal reports whether both sets hold the same ids.
func (set IDSet) Equal(other IDSet) bool {
	if len(set) != len(other) {
		return false
	}
	for id := range set {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
