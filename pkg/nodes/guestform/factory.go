package guestform

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeGuestForm
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Names of the structured answers the form collects",
			},
			"timeout": map[string]any{
				"type":    "number",
				"minimum": 0,
			},
			"timeout_action": map[string]any{
				"type":    "string",
				"enum":    []string{protocol.TimeoutActionEnd, protocol.TimeoutActionFail},
				"default": protocol.TimeoutActionEnd,
			},
		},
	}
}
