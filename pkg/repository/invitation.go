package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// InvitationRepository stores pending invitations and the per-guest index.
type InvitationRepository struct {
	store persistence.Store
}

// Save persists a pending invitation, assigning an id on first save.
func (r *InvitationRepository) Save(ctx context.Context, invitation *models.PendingInvitation) error {
	if invitation.ID == "" {
		invitation.ID = uuid.New().String()
		invitation.CreatedAt = time.Now().UTC()
	}

	key := persistence.Key(persistence.KindInvitation, invitation.ProjectID, invitation.ID)
	if err := putRecord(ctx, r.store, key, invitation); err != nil {
		return err
	}

	indexKey := persistence.IndexKey(persistence.KindInvitation, invitation.ProjectID, "guest", invitation.GuestID)

	return addToIndex(ctx, r.store, indexKey, invitation.ID)
}

// GetByID returns the invitation, or persistence.ErrInvitationNotFound.
func (r *InvitationRepository) GetByID(ctx context.Context, projectID, id string) (*models.PendingInvitation, error) {
	key := persistence.Key(persistence.KindInvitation, projectID, id)

	return getRecord[models.PendingInvitation](ctx, r.store, key, persistence.ErrInvitationNotFound)
}

// ListByGuest returns the guest's pending invitations in creation order.
func (r *InvitationRepository) ListByGuest(ctx context.Context, projectID, guestID string) ([]*models.PendingInvitation, error) {
	indexKey := persistence.IndexKey(persistence.KindInvitation, projectID, "guest", guestID)

	ids, err := readIndex(ctx, r.store, indexKey)
	if err != nil {
		return nil, err
	}

	invitations := make([]*models.PendingInvitation, 0, len(ids))

	for _, id := range ids {
		invitation, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		invitations = append(invitations, invitation)
	}

	return invitations, nil
}

// ListByProject scans every invitation in the project.
func (r *InvitationRepository) ListByProject(ctx context.Context, projectID string) ([]*models.PendingInvitation, error) {
	records, err := r.store.ScanByPrefix(ctx, persistence.Prefix(persistence.KindInvitation, projectID))
	if err != nil {
		return nil, err
	}

	invitations := make([]*models.PendingInvitation, 0, len(records))

	for key := range records {
		invitation, err := getRecord[models.PendingInvitation](ctx, r.store, key, persistence.ErrInvitationNotFound)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		invitations = append(invitations, invitation)
	}

	return invitations, nil
}
