package trigger

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeTrigger
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
	}
}
