// Package protocol defines the interfaces and contracts for pluggable
// chatflow node handlers.
package protocol

import (
	"context"
	"time"

	"github.com/guestflow/guestflow/pkg/models"
)

// OutcomeKind classifies what the executor should do after a node has been
// interpreted.
type OutcomeKind string

const (
	// OutcomeAdvance continues to the next node.
	OutcomeAdvance OutcomeKind = "advance"
	// OutcomeSuspend leaves the execution parked at the current node,
	// released by an external event or a scheduled wake-up.
	OutcomeSuspend OutcomeKind = "suspend"
	// OutcomeComplete terminates the execution successfully.
	OutcomeComplete OutcomeKind = "complete"
)

// Timeout policies for suspending nodes.
const (
	TimeoutActionEnd  = "end"
	TimeoutActionFail = "fail"
)

// Outcome is the result of interpreting one node.
type Outcome struct {
	Kind OutcomeKind

	// NextNodeID overrides edge-based successor resolution (branch nodes
	// set this). Empty means the executor follows the node's single
	// outgoing edge.
	NextNodeID string

	// Output is recorded on the node-history entry.
	Output map[string]any

	// WaitingForReply marks the guest session as awaiting an inbound
	// message pointed at this node (suspend only).
	WaitingForReply bool

	// TimeoutAt schedules a timeout wake-up honoring TimeoutAction
	// (suspend only).
	TimeoutAt     *time.Time
	TimeoutAction string

	// ResumeAt schedules an unconditional wake-up, used by delay nodes
	// (suspend only).
	ResumeAt *time.Time
}

// ExecutionState is the slice of execution context a node handler may read
// and mutate while interpreting one node.
type ExecutionState struct {
	Execution *models.ChatflowExecution
	Chatflow  *models.Chatflow
	Node      *models.Node

	// Record is the node-history entry for the current visit. Handlers
	// may set node-type-specific fields (condition_result, message_sent).
	Record *models.NodeExecution
}

// NodeHandler interprets a single chatflow node against a single
// execution's state. A handler must be idempotent on replay: re-running a
// node after a crash must not repeat externally visible side effects.
type NodeHandler interface {
	// Interpret advances the execution by one node. A returned error
	// terminates the execution as failed.
	Interpret(ctx context.Context, state *ExecutionState) (Outcome, error)
}

// NodeFactory creates handler instances bound to a node's configuration and
// provides metadata about the node type.
type NodeFactory interface {
	// Type returns the node type this factory serves.
	Type() models.NodeType

	// Create creates a handler bound to the given node configuration.
	Create(config map[string]any) (NodeHandler, error)

	// Schema returns the JSON schema for this node type's configuration.
	Schema() map[string]any
}
