// Package models defines the core domain models for node-based workflow automation
package models

import "time"

// TriggerType identifies how a workflow run is started.
type TriggerType string

const (
	TriggerTypeManual  TriggerType = "manual"  // Started by an explicit execute call
	TriggerTypeWebhook TriggerType = "webhook" // Started by an incoming webhook request
)

// Built-in node types.
const (
	NodeTypeManual       = "manual"
	NodeTypeWebhook      = "webhook"
	NodeTypeTelegram     = "telegram"
	NodeTypeEmail        = "email"
	NodeTypeAgent        = "agent"
	NodeTypeForm         = "form"
	NodeTypeWaitForReply = "waitForReply"
)

// NodeDef is the stored definition of one node in a workflow graph.
type NodeDef struct {
	Type         string         `json:"type"                    validate:"required"`
	CredentialID string         `json:"credential_id,omitempty"`
	Template     map[string]any `json:"template,omitempty"`
	PositionX    int            `json:"position_x"` // Editor placement, ignored by the engine
	PositionY    int            `json:"position_y"`
}

// Workflow represents a stored workflow: a directed graph of node
// definitions keyed by node id, plus the adjacency lists connecting them.
type Workflow struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"        validate:"required,min=3"`
	Enabled     bool                `json:"enabled"`
	Nodes       map[string]*NodeDef `json:"nodes"`
	Connections map[string][]string `json:"connections"`
	TriggerType TriggerType         `json:"trigger_type" validate:"required"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// GraphSnapshot is an immutable copy of a workflow's graph taken at
// dispatch time. Jobs carry the snapshot so in-flight executions are not
// affected by concurrent edits to the workflow record.
type GraphSnapshot struct {
	WorkflowID  string              `json:"workflow_id"`
	Nodes       map[string]NodeDef  `json:"nodes"`
	Connections map[string][]string `json:"connections"`
}

// Snapshot deep-copies the node map and connection lists.
func (w *Workflow) Snapshot() *GraphSnapshot {
	nodes := make(map[string]NodeDef, len(w.Nodes))

	for id, def := range w.Nodes {
		if def == nil {
			continue
		}

		copied := *def
		copied.Template = copyMap(def.Template)
		nodes[id] = copied
	}

	connections := make(map[string][]string, len(w.Connections))
	for id, targets := range w.Connections {
		connections[id] = append([]string(nil), targets...)
	}

	return &GraphSnapshot{
		WorkflowID:  w.ID,
		Nodes:       nodes,
		Connections: connections,
	}
}

// Node returns the definition for a node id, or false when the id is not
// part of the snapshot (a dangling connection target).
func (g *GraphSnapshot) Node(id string) (NodeDef, bool) {
	def, ok := g.Nodes[id]

	return def, ok
}

// Successors returns the ordered successor ids of a node.
func (g *GraphSnapshot) Successors(id string) []string {
	return g.Connections[id]
}

// Roots returns the entry nodes for a run: nodes of the workflow's trigger
// type with no incoming edge. When no node matches the trigger type, any
// node without an incoming edge is treated as a root.
func (g *GraphSnapshot) Roots(triggerType TriggerType) []string {
	incoming := make(map[string]int, len(g.Nodes))
	for _, targets := range g.Connections {
		for _, target := range targets {
			incoming[target]++
		}
	}

	var triggerRoots, plainRoots []string

	for id, def := range g.Nodes {
		if incoming[id] > 0 {
			continue
		}

		if def.Type == string(triggerType) {
			triggerRoots = append(triggerRoots, id)
		} else {
			plainRoots = append(plainRoots, id)
		}
	}

	if len(triggerRoots) > 0 {
		return triggerRoots
	}

	return plainRoots
}

// CountReachable returns the number of distinct node ids reachable from the
// given roots, roots included. Connection targets missing from the node map
// are not counted; they can never execute.
func (g *GraphSnapshot) CountReachable(roots []string) int {
	seen := make(map[string]bool, len(g.Nodes))
	stack := append([]string(nil), roots...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[id] {
			continue
		}

		if _, ok := g.Nodes[id]; !ok {
			continue
		}

		seen[id] = true
		stack = append(stack, g.Connections[id]...)
	}

	return len(seen)
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
