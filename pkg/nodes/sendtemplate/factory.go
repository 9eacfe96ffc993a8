package sendtemplate

import (
	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
)

type Factory struct {
	templates  *repository.TemplateRepository
	dispatcher delivery.Dispatcher
}

func NewFactory(templates *repository.TemplateRepository, dispatcher delivery.Dispatcher) *Factory {
	return &Factory{templates: templates, dispatcher: dispatcher}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeSendTemplate
}

func (f *Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config, f.templates, f.dispatcher)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{
				"type":        "string",
				"description": "Id of the stored message template to send",
			},
			"variables": map[string]any{
				"type":        "object",
				"description": "Placeholder values; a value of the form {{name}} is resolved from the execution variables",
			},
		},
		"required": []string{"template_id"},
	}
}
