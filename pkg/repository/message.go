package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// MessageRepository stores the outbound message log and the per-campaign
// message index feeding campaign stats.
type MessageRepository struct {
	store persistence.Store
}

// Save persists a message log entry, assigning an id on first save.
func (r *MessageRepository) Save(ctx context.Context, message *models.MessageLog) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
		message.QueuedAt = time.Now().UTC()
	}

	key := persistence.Key(persistence.KindMessage, message.ProjectID, message.ID)
	if err := putRecord(ctx, r.store, key, message); err != nil {
		return err
	}

	indexKey := persistence.IndexKey(persistence.KindMessage, message.ProjectID, "campaign", message.CampaignID)

	return addToIndex(ctx, r.store, indexKey, message.ID)
}

// GetByID returns the message, or persistence.ErrMessageNotFound.
func (r *MessageRepository) GetByID(ctx context.Context, projectID, id string) (*models.MessageLog, error) {
	key := persistence.Key(persistence.KindMessage, projectID, id)

	return getRecord[models.MessageLog](ctx, r.store, key, persistence.ErrMessageNotFound)
}

// ListByCampaign returns the campaign's message log in dispatch order.
func (r *MessageRepository) ListByCampaign(ctx context.Context, projectID, campaignID string) ([]*models.MessageLog, error) {
	indexKey := persistence.IndexKey(persistence.KindMessage, projectID, "campaign", campaignID)

	ids, err := readIndex(ctx, r.store, indexKey)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.MessageLog, 0, len(ids))

	for _, id := range ids {
		message, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		messages = append(messages, message)
	}

	return messages, nil
}
