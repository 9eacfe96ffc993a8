package repository

import (
	"context"
	"time"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
)

// SessionRepository stores guest sessions. Sessions are keyed by guest id,
// which makes "at most one session record per guest" structural; the active
// invariant (expiry, ownership) is enforced by the session tracker.
type SessionRepository struct {
	store persistence.Store
}

func sessionKey(projectID, guestID string) string {
	return persistence.Key(persistence.KindSession, projectID, guestID)
}

// GetByGuest returns the guest's session record regardless of expiry, or
// persistence.ErrSessionNotFound.
func (r *SessionRepository) GetByGuest(ctx context.Context, projectID, guestID string) (*models.GuestSession, error) {
	return getRecord[models.GuestSession](ctx, r.store, sessionKey(projectID, guestID), persistence.ErrSessionNotFound)
}

// SaveVersioned writes the session only if the stored version still matches
// expectedVersion (0 means the record must not exist). The version bump is
// applied here so callers pass the version they read.
func (r *SessionRepository) SaveVersioned(ctx context.Context, session *models.GuestSession, expectedVersion int64) error {
	current, err := r.GetByGuest(ctx, session.ProjectID, session.GuestID)
	if err != nil && !persistence.IsNotFound(err) {
		return err
	}

	switch {
	case current == nil && expectedVersion != 0:
		return persistence.ErrSessionConflict
	case current != nil && current.Version != expectedVersion:
		return persistence.ErrSessionConflict
	}

	session.Version = expectedVersion + 1
	session.UpdatedAt = time.Now().UTC()

	key := sessionKey(session.ProjectID, session.GuestID)
	if err := putRecord(ctx, r.store, key, session); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindSession, session.ProjectID), session.GuestID)
}

// Save writes the session unconditionally, bumping its version.
func (r *SessionRepository) Save(ctx context.Context, session *models.GuestSession) error {
	session.Version++
	session.UpdatedAt = time.Now().UTC()

	key := sessionKey(session.ProjectID, session.GuestID)
	if err := putRecord(ctx, r.store, key, session); err != nil {
		return err
	}

	return addToIndex(ctx, r.store, persistence.IndexKey(persistence.KindSession, session.ProjectID), session.GuestID)
}

// Delete removes the session and drops it from the project's session index.
func (r *SessionRepository) Delete(ctx context.Context, projectID, guestID string) error {
	if err := r.store.Delete(ctx, sessionKey(projectID, guestID)); err != nil {
		return err
	}

	return removeFromIndex(ctx, r.store, persistence.IndexKey(persistence.KindSession, projectID), guestID)
}

// ListByProject returns every session record in the project.
func (r *SessionRepository) ListByProject(ctx context.Context, projectID string) ([]*models.GuestSession, error) {
	ids, err := readIndex(ctx, r.store, persistence.IndexKey(persistence.KindSession, projectID))
	if err != nil {
		return nil, err
	}

	sessions := make([]*models.GuestSession, 0, len(ids))

	for _, guestID := range ids {
		session, err := r.GetByGuest(ctx, projectID, guestID)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}
