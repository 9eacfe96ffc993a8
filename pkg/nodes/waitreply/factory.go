package waitreply

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeWaitReply
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Execution variable the reply is merged under",
				"default":     DefaultVariable,
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Seconds to wait before the timeout action fires; omit to wait indefinitely",
				"minimum":     0,
			},
			"timeout_action": map[string]any{
				"type":    "string",
				"enum":    []string{protocol.TimeoutActionEnd, protocol.TimeoutActionFail},
				"default": protocol.TimeoutActionEnd,
			},
		},
	}
}
