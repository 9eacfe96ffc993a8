// Package guestform implements the structured-answer suspension node.
package guestform

import (
	"context"
	"time"

	"github.com/guestflow/guestflow/pkg/protocol"
)

// Node suspends the execution until externally supplied structured answers
// arrive. Answers are merged into the execution variables and recorded as
// form responses on the node-history entry by the resume path.
type Node struct {
	fields        []string
	timeout       time.Duration
	timeoutAction string
	now           func() time.Time
}

func NewNode(config map[string]any) *Node {
	var fields []string

	if raw, ok := config["fields"].([]any); ok {
		for _, f := range raw {
			if name, ok := f.(string); ok {
				fields = append(fields, name)
			}
		}
	}

	timeoutAction, _ := config["timeout_action"].(string)
	if timeoutAction == "" {
		timeoutAction = protocol.TimeoutActionEnd
	}

	return &Node{
		fields:        fields,
		timeout:       secondsFromConfig(config["timeout"]),
		timeoutAction: timeoutAction,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Fields returns the form field names the node expects.
func (n *Node) Fields() []string {
	return n.fields
}

func (n *Node) Interpret(_ context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	now := n.now()
	state.Record.WaitingSince = &now

	outcome := protocol.Outcome{
		Kind:            protocol.OutcomeSuspend,
		WaitingForReply: true,
		Output:          map[string]any{"fields": n.fields},
	}

	if n.timeout > 0 {
		timeoutAt := now.Add(n.timeout)
		state.Record.TimeoutAt = &timeoutAt
		outcome.TimeoutAt = &timeoutAt
		outcome.TimeoutAction = n.timeoutAction
	}

	return outcome, nil
}

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
