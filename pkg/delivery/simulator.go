// Package delivery dispatches outbound messages. The only shipping
// implementation is a simulator; real channel providers plug in behind the
// Dispatcher interface.
package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/repository"
)

// Dispatcher sends one rendered message to a guest. Send must persist the
// message log entry before returning.
type Dispatcher interface {
	Send(ctx context.Context, message *models.MessageLog) error
}

// Simulator fakes a messaging provider. Messages are marked sent
// synchronously and flip to delivered after a short lag, which exercises the
// same status transitions a real provider callback would.
type Simulator struct {
	messages    *repository.MessageRepository
	logger      *slog.Logger
	deliveryLag time.Duration
}

func NewSimulator(messages *repository.MessageRepository, logger *slog.Logger) *Simulator {
	return &Simulator{
		messages:    messages,
		logger:      logger.With("module", "delivery"),
		deliveryLag: 150 * time.Millisecond,
	}
}

// Send marks the message sent and persists it, then schedules the delivery
// receipt.
func (s *Simulator) Send(ctx context.Context, message *models.MessageLog) error {
	now := time.Now().UTC()
	message.Status = models.MessageStatusSent
	message.SentAt = &now

	if err := s.messages.Save(ctx, message); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "message sent",
		"message_id", message.ID, "guest_id", message.GuestID, "node_id", message.NodeID)

	projectID, messageID := message.ProjectID, message.ID
	time.AfterFunc(s.deliveryLag, func() {
		s.markDelivered(projectID, messageID)
	})

	return nil
}

func (s *Simulator) markDelivered(projectID, messageID string) {
	ctx := context.Background()

	message, err := s.messages.GetByID(ctx, projectID, messageID)
	if err != nil {
		s.logger.Error("delivery receipt lookup failed", "message_id", messageID, "error", err)

		return
	}

	if message.Status != models.MessageStatusSent {
		return
	}

	now := time.Now().UTC()
	message.Status = models.MessageStatusDelivered
	message.DeliveredAt = &now

	if err := s.messages.Save(ctx, message); err != nil {
		s.logger.Error("delivery receipt save failed", "message_id", messageID, "error", err)
	}
}
