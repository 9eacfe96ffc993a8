package delay

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeDelay
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":             "number",
				"exclusiveMinimum": 0,
			},
			"unit": map[string]any{
				"type":    "string",
				"enum":    []string{"seconds", "minutes", "hours", "days"},
				"default": "seconds",
			},
		},
		"required": []string{"duration"},
	}
}
