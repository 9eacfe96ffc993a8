package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// ChatflowRepository stores chatflow graphs.
type ChatflowRepository struct {
	store persistence.Store
}

// Save persists a chatflow, assigning an id on first save.
func (r *ChatflowRepository) Save(ctx context.Context, flow *models.Chatflow) error {
	now := time.Now().UTC()

	if flow.ID == "" {
		flow.ID = uuid.New().String()
		flow.CreatedAt = now
	}

	if flow.Status == "" {
		flow.Status = models.ChatflowStatusDraft
	}

	flow.UpdatedAt = now

	key := persistence.Key(persistence.KindChatflow, flow.ProjectID, flow.ID)
	if err := putRecord(ctx, r.store, key, flow); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindChatflow, flow.ProjectID), flow.ID)
}

// GetByID returns the chatflow, or persistence.ErrChatflowNotFound.
func (r *ChatflowRepository) GetByID(ctx context.Context, projectID, id string) (*models.Chatflow, error) {
	key := persistence.Key(persistence.KindChatflow, projectID, id)

	return getRecord[models.Chatflow](ctx, r.store, key, persistence.ErrChatflowNotFound)
}

// ListByProject returns every chatflow in the project in index order.
func (r *ChatflowRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Chatflow, error) {
	ids, err := readIndex(ctx, r.store, persistence.IndexKey(persistence.KindChatflow, projectID))
	if err != nil {
		return nil, err
	}

	flows := make([]*models.Chatflow, 0, len(ids))

	for _, id := range ids {
		flow, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		flows = append(flows, flow)
	}

	return flows, nil
}
