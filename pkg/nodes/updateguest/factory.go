package updateguest

import (
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
)

type Factory struct {
	guests *repository.GuestRepository
}

func NewFactory(guests *repository.GuestRepository) *Factory {
	return &Factory{guests: guests}
}

func (*Factory) Type() models.NodeType {
	return models.NodeTypeUpdateGuest
}

func (f *Factory) Create(config map[string]any) (protocol.NodeHandler, error) {
	return NewNode(config, f.guests), nil
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rsvp_status": map[string]any{
				"type": "string",
				"enum": []string{string(models.RSVPPending), string(models.RSVPAccepted), string(models.RSVPDeclined)},
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"plus_one_confirmed": map[string]any{
				"type": "boolean",
			},
		},
	}
}
