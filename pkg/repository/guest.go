package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// GuestRepository stores guests and the per-project guest index.
type GuestRepository struct {
	store persistence.Store
}

// Save persists a guest, assigning an id on first save.
func (r *GuestRepository) Save(ctx context.Context, guest *models.Guest) error {
	now := time.Now().UTC()

	if guest.ID == "" {
		guest.ID = uuid.New().String()
		guest.CreatedAt = now
	}

	if guest.RSVPStatus == "" {
		guest.RSVPStatus = models.RSVPPending
	}

	guest.UpdatedAt = now

	key := persistence.Key(persistence.KindGuest, guest.ProjectID, guest.ID)
	if err := putRecord(ctx, r.store, key, guest); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindGuest, guest.ProjectID), guest.ID)
}

// GetByID returns the guest, or persistence.ErrGuestNotFound.
func (r *GuestRepository) GetByID(ctx context.Context, projectID, id string) (*models.Guest, error) {
	key := persistence.Key(persistence.KindGuest, projectID, id)

	return getRecord[models.Guest](ctx, r.store, key, persistence.ErrGuestNotFound)
}

// ListByProject returns every guest in the project in index order.
func (r *GuestRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Guest, error) {
	ids, err := readIndex(ctx, r.store, persistence.IndexKey(persistence.KindGuest, projectID))
	if err != nil {
		return nil, err
	}

	guests := make([]*models.Guest, 0, len(ids))

	for _, id := range ids {
		guest, err := r.GetByID(ctx, projectID, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				// Stale index entry.
				continue
			}

			return nil, err
		}

		guests = append(guests, guest)
	}

	return guests, nil
}

// Delete removes the guest and its index entry.
func (r *GuestRepository) Delete(ctx context.Context, projectID, id string) error {
	key := persistence.Key(persistence.KindGuest, projectID, id)

	if err := r.store.Delete(ctx, key); err != nil {
		return err
	}

	return removeFromIndex(ctx, r.store, persistence.IndexKey(persistence.KindGuest, projectID), id)
}
