package waitreply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

func waitState() *protocol.ExecutionState {
	return &protocol.ExecutionState{
		Execution: &models.ChatflowExecution{Variables: map[string]any{}},
		Node:      &models.Node{ID: "wait-1", Type: models.NodeTypeWaitReply},
		Record:    &models.NodeExecution{NodeID: "wait-1"},
	}
}

func TestNode_SuspendsWaitingForReply(t *testing.T) {
	node := NewNode(map[string]any{})

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	node.now = func() time.Time { return base }

	state := waitState()

	outcome, err := node.Interpret(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeSuspend, outcome.Kind)
	assert.True(t, outcome.WaitingForReply)
	assert.Nil(t, outcome.TimeoutAt, "no timeout configured means indefinite wait")
	require.NotNil(t, state.Record.WaitingSince)
	assert.Equal(t, base, *state.Record.WaitingSince)
	assert.Equal(t, DefaultVariable, node.Variable())
}

func TestNode_TimeoutSchedule(t *testing.T) {
	node := NewNode(map[string]any{
		"variable":       "rsvp_answer",
		"timeout":        float64(60),
		"timeout_action": protocol.TimeoutActionFail,
	})

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	node.now = func() time.Time { return base }

	state := waitState()

	outcome, err := node.Interpret(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, outcome.TimeoutAt)
	assert.Equal(t, base.Add(time.Minute), *outcome.TimeoutAt)
	assert.Equal(t, protocol.TimeoutActionFail, outcome.TimeoutAction)
	assert.Equal(t, "rsvp_answer", node.Variable())
	require.NotNil(t, state.Record.TimeoutAt)
}
