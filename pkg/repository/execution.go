package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// ExecutionRepository stores per-guest chatflow executions and the
// per-campaign execution index.
type ExecutionRepository struct {
	store persistence.Store
}

// Save persists an execution, assigning an id on first save. Every mutation
// stamps updated_at.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.ChatflowExecution) error {
	now := time.Now().UTC()

	if execution.ID == "" {
		execution.ID = uuid.New().String()
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	key := persistence.Key(persistence.KindExecution, execution.ProjectID, execution.ID)
	if err := putRecord(ctx, r.store, key, execution); err != nil {
		return err
	}

	indexKey := persistence.IndexKey(persistence.KindExecution, execution.ProjectID, "campaign", execution.CampaignID)

	return addToIndex(ctx, r.store, indexKey, execution.ID)
}

// GetByID returns the execution, or persistence.ErrExecutionNotFound.
func (r *ExecutionRepository) GetByID(ctx context.Context, projectID, id string) (*models.ChatflowExecution, error) {
	key := persistence.Key(persistence.KindExecution, projectID, id)

	return getRecord[models.ChatflowExecution](ctx, r.store, key, persistence.ErrExecutionNotFound)
}

// ListByCampaign returns every execution of the campaign in creation order.
func (r *ExecutionRepository) ListByCampaign(ctx context.Context, projectID, campaignID string) ([]*models.ChatflowExecution, error) {
	indexKey := persistence.IndexKey(persistence.KindExecution, projectID, "campaign", campaignID)

	ids, err := readIndex(ctx, r.store, indexKey)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.ChatflowExecution, 0, len(ids))

	for _, id := range ids {
		execution, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}
