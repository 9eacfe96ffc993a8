package condition

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (*Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"variable": map[string]any{
				"type":        "string",
				"description": "Execution variable to compare",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": []string{OperatorEquals, OperatorNotEquals, OperatorContains, OperatorMatches},
			},
			"value": map[string]any{
				"description": "Value to compare against",
			},
			"case_sensitive": map[string]any{
				"type":    "boolean",
				"default": true,
			},
		},
		"required": []string{"variable", "operator"},
	}
}
