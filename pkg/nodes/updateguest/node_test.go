package updateguest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence/file"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
)

func TestNode_MergesGuestAttributes(t *testing.T) {
	repos := repository.New(file.NewStore(t.TempDir()))
	ctx := context.Background()

	guest := &models.Guest{
		ProjectID: "proj",
		Name:      "Alice",
		Phone:     "+15550001111",
		Tags:      []string{"vip"},
	}
	require.NoError(t, repos.Guests.Save(ctx, guest))

	node := NewNode(map[string]any{
		"rsvp_status":        string(models.RSVPAccepted),
		"tags":               []any{"vip", "confirmed"},
		"plus_one_confirmed": true,
	}, repos.Guests)

	execution := &models.ChatflowExecution{
		ProjectID: "proj",
		GuestID:   guest.ID,
		Variables: map[string]any{},
	}
	state := &protocol.ExecutionState{
		Execution: execution,
		Node:      &models.Node{ID: "update-1", Type: models.NodeTypeUpdateGuest},
		Record:    &models.NodeExecution{NodeID: "update-1"},
	}

	outcome, err := node.Interpret(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, protocol.OutcomeAdvance, outcome.Kind)

	updated, err := repos.Guests.GetByID(ctx, "proj", guest.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RSVPAccepted, updated.RSVPStatus)
	assert.ElementsMatch(t, []string{"vip", "confirmed"}, updated.Tags, "tag merge is a union, not an overwrite")
	assert.True(t, updated.PlusOneConfirmed)

	assert.Equal(t, string(models.RSVPAccepted), execution.Variables["rsvp_status"])
	assert.Equal(t, true, execution.Variables["plus_one_confirmed"])
}

func TestNode_MissingGuestFails(t *testing.T) {
	repos := repository.New(file.NewStore(t.TempDir()))

	node := NewNode(map[string]any{"rsvp_status": string(models.RSVPDeclined)}, repos.Guests)

	state := &protocol.ExecutionState{
		Execution: &models.ChatflowExecution{ProjectID: "proj", GuestID: "absent", Variables: map[string]any{}},
		Node:      &models.Node{ID: "update-1", Type: models.NodeTypeUpdateGuest},
		Record:    &models.NodeExecution{NodeID: "update-1"},
	}

	_, err := node.Interpret(context.Background(), state)
	require.Error(t, err)
}
