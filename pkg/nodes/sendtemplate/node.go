// Package sendtemplate implements the message-dispatching chatflow node.
package sendtemplate

import (
	"context"
	"errors"
	"fmt"

	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/template"
)

var ErrMissingTemplateID = errors.New("send_template node requires a template_id")

// Node resolves a stored template, renders it against the node's configured
// variables and the execution's variables, and hands the message to the
// dispatcher. A replay of an already-sent node advances without dispatching
// again.
type Node struct {
	templateID string
	variables  map[string]any
	templates  *repository.TemplateRepository
	dispatcher delivery.Dispatcher
}

func NewNode(config map[string]any, templates *repository.TemplateRepository, dispatcher delivery.Dispatcher) (*Node, error) {
	templateID, _ := config["template_id"].(string)
	if templateID == "" {
		return nil, ErrMissingTemplateID
	}

	variables, _ := config["variables"].(map[string]any)

	return &Node{
		templateID: templateID,
		variables:  variables,
		templates:  templates,
		dispatcher: dispatcher,
	}, nil
}

func (n *Node) Interpret(ctx context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	if state.Record.MessageSent {
		return protocol.Outcome{
			Kind:   protocol.OutcomeAdvance,
			Output: state.Record.Output,
		}, nil
	}

	execution := state.Execution

	stored, err := n.templates.GetByID(ctx, execution.ProjectID, n.templateID)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("resolving template %s: %w", n.templateID, err)
	}

	body := template.Render(stored.Content, n.variables, execution.Variables)

	message := &models.MessageLog{
		ProjectID:   execution.ProjectID,
		CampaignID:  execution.CampaignID,
		ExecutionID: execution.ID,
		GuestID:     execution.GuestID,
		NodeID:      state.Node.ID,
		TemplateID:  n.templateID,
		Body:        body,
		Status:      models.MessageStatusQueued,
	}

	if err := n.dispatcher.Send(ctx, message); err != nil {
		return protocol.Outcome{}, fmt.Errorf("dispatching message for node %s: %w", state.Node.ID, err)
	}

	state.Record.MessageSent = true

	return protocol.Outcome{
		Kind: protocol.OutcomeAdvance,
		Output: map[string]any{
			"message_id":  message.ID,
			"template_id": n.templateID,
			"body":        body,
		},
	}, nil
}
