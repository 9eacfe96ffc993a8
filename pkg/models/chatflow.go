// Package models defines the core domain models for chatflow campaign execution.
package models

import "time"

// NodeType identifies the behavior of a chatflow node.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "trigger"
	NodeTypeSendTemplate NodeType = "send_template"
	NodeTypeWaitReply    NodeType = "wait_reply"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeDelay        NodeType = "delay"
	NodeTypeGuestForm    NodeType = "guest_form"
	NodeTypeUpdateGuest  NodeType = "update_guest"
	NodeTypeEnd          NodeType = "end"
)

// Condition edges are disambiguated by these source handles.
const (
	EdgeHandleTrue  = "true"
	EdgeHandleFalse = "false"
)

// Node is a single step in a chatflow graph.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required"`
	Label  string         `json:"label"`
	Config map[string]any `json:"config"`
}

// Edge is a directed connection between two nodes. SourceHandle carries the
// branch discriminator ("true"/"false") for edges leaving a condition node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// ChatflowStatus represents the lifecycle state of a chatflow.
type ChatflowStatus string

const (
	ChatflowStatusDraft     ChatflowStatus = "draft"
	ChatflowStatusPublished ChatflowStatus = "published"
)

// Chatflow is the node/edge graph shared by all executions of a campaign.
// It is immutable for the duration of an execution run.
type Chatflow struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Name      string         `json:"name"   validate:"required,min=3"`
	Status    ChatflowStatus `json:"status"`
	Nodes     []*Node        `json:"nodes"`
	Edges     []*Edge        `json:"edges"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (c *Chatflow) NodeByID(id string) *Node {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// TriggerNode returns the chatflow's entry point, or nil when the graph has
// no trigger node.
func (c *Chatflow) TriggerNode() *Node {
	for _, n := range c.Nodes {
		if n.Type == NodeTypeTrigger {
			return n
		}
	}

	return nil
}

// EndNodeID returns the id of the first end node, or "".
func (c *Chatflow) EndNodeID() string {
	for _, n := range c.Nodes {
		if n.Type == NodeTypeEnd {
			return n.ID
		}
	}

	return ""
}

// OutgoingEdges returns every edge leaving the given node, in stored order.
func (c *Chatflow) OutgoingEdges(nodeID string) []*Edge {
	var edges []*Edge

	for _, e := range c.Edges {
		if e.Source == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// NextNodeID returns the target of the first outgoing edge of the node.
// Non-condition nodes have at most one outgoing edge; when the store holds
// more than one the first match wins (publish validation rejects that case).
func (c *Chatflow) NextNodeID(nodeID string) string {
	for _, e := range c.Edges {
		if e.Source == nodeID {
			return e.Target
		}
	}

	return ""
}

// BranchTarget returns the target of the outgoing edge whose source handle
// matches the given discriminator, or "" when no such edge exists.
func (c *Chatflow) BranchTarget(nodeID, handle string) string {
	for _, e := range c.Edges {
		if e.Source == nodeID && e.SourceHandle == handle {
			return e.Target
		}
	}

	return ""
}
