package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

func TestNewNode_UnitConversion(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		want   time.Duration
	}{
		{"default seconds", map[string]any{"duration": float64(30)}, 30 * time.Second},
		{"minutes", map[string]any{"duration": float64(5), "unit": "minutes"}, 5 * time.Minute},
		{"hours", map[string]any{"duration": float64(2), "unit": "hours"}, 2 * time.Hour},
		{"days", map[string]any{"duration": float64(1), "unit": "days"}, 24 * time.Hour},
		{"fractional", map[string]any{"duration": 1.5, "unit": "minutes"}, 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewNode(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, node.Duration())
		})
	}
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode(map[string]any{})
	require.ErrorIs(t, err, ErrMissingDuration)

	_, err = NewNode(map[string]any{"duration": float64(-1)})
	require.ErrorIs(t, err, ErrMissingDuration)

	_, err = NewNode(map[string]any{"duration": float64(1), "unit": "fortnights"})
	require.ErrorIs(t, err, ErrUnknownUnit)
}

func TestNode_SuspendsWithResumeTime(t *testing.T) {
	node, err := NewNode(map[string]any{"duration": float64(10), "unit": "minutes"})
	require.NoError(t, err)

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	node.now = func() time.Time { return base }

	record := &models.NodeExecution{NodeID: "delay-1"}
	state := &protocol.ExecutionState{
		Execution: &models.ChatflowExecution{Variables: map[string]any{}},
		Node:      &models.Node{ID: "delay-1", Type: models.NodeTypeDelay},
		Record:    record,
	}

	outcome, err := node.Interpret(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, protocol.OutcomeSuspend, outcome.Kind)
	require.NotNil(t, outcome.ResumeAt)
	assert.Equal(t, base.Add(10*time.Minute), *outcome.ResumeAt)
	require.NotNil(t, record.WaitingSince)
	assert.Equal(t, base, *record.WaitingSince)
}
