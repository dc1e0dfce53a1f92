package models

import "fmt"

// Job is the transient queue record for "run this node, with this context,
// for this execution". Jobs exist only on the queue; the worker that
// dequeues one consumes it and enqueues jobs for the node's successors.
type Job struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	WorkflowID   string         `json:"workflow_id"`
	NodeID       string         `json:"node_id"`
	NodeType     string         `json:"node_type"`
	Node         NodeDef        `json:"node"`
	CredentialID string         `json:"credential_id,omitempty"`
	Context      map[string]any `json:"context"`
	Graph        *GraphSnapshot `json:"graph"`
}

// NewJob builds the job for one node of an execution. The graph snapshot is
// the one taken at dispatch time and travels with every job of the run.
func NewJob(executionID string, graph *GraphSnapshot, nodeID string, node NodeDef, context map[string]any) *Job {
	return &Job{
		ID:           fmt.Sprintf("%s-%s", nodeID, executionID),
		ExecutionID:  executionID,
		WorkflowID:   graph.WorkflowID,
		NodeID:       nodeID,
		NodeType:     node.Type,
		Node:         node,
		CredentialID: node.CredentialID,
		Context:      context,
		Graph:        graph,
	}
}
