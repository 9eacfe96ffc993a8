// Package delay implements the timed-wait chatflow node.
package delay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guestflow/guestflow/pkg/protocol"
)

var (
	ErrMissingDuration = errors.New("delay node requires a positive duration")
	ErrUnknownUnit     = errors.New("delay node unit is not supported")
)

// Node suspends the execution until an absolute resume time. The wake-up is
// scheduled through the time-ordered work queue; no worker thread sleeps.
type Node struct {
	duration time.Duration
	now      func() time.Time
}

func NewNode(config map[string]any) (*Node, error) {
	amount := numberFromConfig(config["duration"])
	if amount <= 0 {
		return nil, ErrMissingDuration
	}

	unit, _ := config["unit"].(string)
	if unit == "" {
		unit = "seconds"
	}

	var base time.Duration

	switch unit {
	case "seconds":
		base = time.Second
	case "minutes":
		base = time.Minute
	case "hours":
		base = time.Hour
	case "days":
		base = 24 * time.Hour
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}

	return &Node{
		duration: time.Duration(amount * float64(base)),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Duration returns the configured wait as a duration.
func (n *Node) Duration() time.Duration {
	return n.duration
}

func (n *Node) Interpret(_ context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	now := n.now()
	resumeAt := now.Add(n.duration)
	state.Record.WaitingSince = &now

	return protocol.Outcome{
		Kind:     protocol.OutcomeSuspend,
		ResumeAt: &resumeAt,
		Output: map[string]any{
			"resume_at": resumeAt.Format(time.RFC3339),
		},
	}, nil
}

func numberFromConfig(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
