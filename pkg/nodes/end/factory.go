package end

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeEnd
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Optional closing note recorded on the node output",
			},
		},
	}
}
