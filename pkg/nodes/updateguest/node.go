// Package updateguest implements the guest-record mutation node.
package updateguest

import (
	"context"
	"fmt"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
)

// Node merges configured guest attributes into the guest record and mirrors
// them into the execution variables. Tag merging is a set union, not an
// overwrite.
type Node struct {
	rsvpStatus       string
	tags             []string
	plusOneConfirmed *bool
	guests           *repository.GuestRepository
}

func NewNode(config map[string]any, guests *repository.GuestRepository) *Node {
	node := &Node{guests: guests}

	node.rsvpStatus, _ = config["rsvp_status"].(string)

	if raw, ok := config["tags"].([]any); ok {
		for _, t := range raw {
			if tag, ok := t.(string); ok {
				node.tags = append(node.tags, tag)
			}
		}
	}

	if v, ok := config["plus_one_confirmed"].(bool); ok {
		node.plusOneConfirmed = &v
	}

	return node
}

func (n *Node) Interpret(ctx context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	execution := state.Execution

	guest, err := n.guests.GetByID(ctx, execution.ProjectID, execution.GuestID)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("loading guest %s: %w", execution.GuestID, err)
	}

	output := map[string]any{}

	if n.rsvpStatus != "" {
		guest.RSVPStatus = models.RSVPStatus(n.rsvpStatus)
		execution.Variables["rsvp_status"] = n.rsvpStatus
		output["rsvp_status"] = n.rsvpStatus
	}

	if len(n.tags) > 0 {
		guest.AddTags(n.tags)
		execution.Variables["tags"] = guest.Tags
		output["tags"] = guest.Tags
	}

	if n.plusOneConfirmed != nil {
		guest.PlusOneConfirmed = *n.plusOneConfirmed
		execution.Variables["plus_one_confirmed"] = *n.plusOneConfirmed
		output["plus_one_confirmed"] = *n.plusOneConfirmed
	}

	if err := n.guests.Save(ctx, guest); err != nil {
		return protocol.Outcome{}, fmt.Errorf("saving guest %s: %w", guest.ID, err)
	}

	return protocol.Outcome{
		Kind:   protocol.OutcomeAdvance,
		Output: output,
	}, nil
}
