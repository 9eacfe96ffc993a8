// Package trigger implements the chatflow entry node.
package trigger

import (
	"context"

	"github.com/guestflow/guestflow/pkg/protocol"
)

// Node is a pass-through to the trigger's single successor. The interesting
// part of starting an execution (session claim, variable seeding) happens
// before the executor reaches this node.
type Node struct{}

func NewNode(_ map[string]any) *Node {
	return &Node{}
}

func (n *Node) Interpret(_ context.Context, _ *protocol.ExecutionState) (protocol.Outcome, error) {
	return protocol.Outcome{
		Kind:   protocol.OutcomeAdvance,
		Output: map[string]any{"triggered": true},
	}, nil
}
