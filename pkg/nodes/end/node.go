// Package end implements the terminal chatflow node.
package end

import (
	"context"

	"github.com/guestflow/guestflow/pkg/protocol"
)

// Node completes the execution. The executor reacts to the complete outcome
// by stamping the execution and releasing the guest session it owns.
type Node struct {
	message string
}

func NewNode(config map[string]any) *Node {
	message, _ := config["message"].(string)

	return &Node{message: message}
}

func (n *Node) Interpret(_ context.Context, _ *protocol.ExecutionState) (protocol.Outcome, error) {
	output := map[string]any{"ended": true}
	if n.message != "" {
		output["message"] = n.message
	}

	return protocol.Outcome{
		Kind:   protocol.OutcomeComplete,
		Output: output,
	}, nil
}
