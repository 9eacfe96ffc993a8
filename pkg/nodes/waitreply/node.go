// Package waitreply implements the reply-suspension chatflow node.
package waitreply

import (
	"context"
	"time"

	"github.com/guestflow/guestflow/pkg/protocol"
)

// DefaultVariable is the execution variable an inbound reply is merged
// under when the node configures no name of its own.
const DefaultVariable = "reply"

// Node suspends the execution until an inbound guest message arrives or the
// configured timeout fires. The reply text is merged into the execution
// variables under the configured variable name by the resume path.
type Node struct {
	variable      string
	timeout       time.Duration
	timeoutAction string
	now           func() time.Time
}

func NewNode(config map[string]any) *Node {
	variable, _ := config["variable"].(string)
	if variable == "" {
		variable = DefaultVariable
	}

	timeoutAction, _ := config["timeout_action"].(string)
	if timeoutAction == "" {
		timeoutAction = protocol.TimeoutActionEnd
	}

	return &Node{
		variable:      variable,
		timeout:       secondsFromConfig(config["timeout"]),
		timeoutAction: timeoutAction,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Variable returns the execution variable the reply will be stored under.
func (n *Node) Variable() string {
	return n.variable
}

func (n *Node) Interpret(_ context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	now := n.now()
	state.Record.WaitingSince = &now

	outcome := protocol.Outcome{
		Kind:            protocol.OutcomeSuspend,
		WaitingForReply: true,
		Output:          map[string]any{"variable": n.variable},
	}

	if n.timeout > 0 {
		timeoutAt := now.Add(n.timeout)
		state.Record.TimeoutAt = &timeoutAt
		outcome.TimeoutAt = &timeoutAt
		outcome.TimeoutAction = n.timeoutAction
	}

	return outcome, nil
}

// secondsFromConfig reads a numeric timeout in seconds. JSON decoding yields
// float64; Go literals in tests may pass int.
func secondsFromConfig(value any) time.Duration {
	switch v := value.(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	default:
		return 0
	}
}
