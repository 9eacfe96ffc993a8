// Package session arbitrates the per-guest messaging session between
// concurrently running campaigns.
package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/repository"
)

const lockShards = 64

// BusyError reports a claim attempt against a session that is currently
// owned by another campaign.
type BusyError struct {
	GuestID            string
	BlockingCampaignID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("guest %s session is owned by campaign %s", e.GuestID, e.BlockingCampaignID)
}

// Tracker owns all reads and writes of guest sessions. In-process claims are
// serialized through sharded mutexes; cross-process races fall through to the
// optimistic version check in the repository.
type Tracker struct {
	sessions    *repository.SessionRepository
	invitations *repository.InvitationRepository
	logger      *slog.Logger
	locks       [lockShards]sync.Mutex
	now         func() time.Time
}

func NewTracker(sessions *repository.SessionRepository, invitations *repository.InvitationRepository, logger *slog.Logger) *Tracker {
	return &Tracker{
		sessions:    sessions,
		invitations: invitations,
		logger:      logger.With("module", "session"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (t *Tracker) lockFor(guestID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(guestID))

	return &t.locks[h.Sum32()%lockShards]
}

// GetActive returns the guest's session if its window is still open. Expired
// records are deleted lazily on read.
func (t *Tracker) GetActive(ctx context.Context, projectID, guestID string) (*models.GuestSession, error) {
	session, err := t.sessions.GetByGuest(ctx, projectID, guestID)
	if err != nil {
		return nil, err
	}

	if !session.IsActive(t.now()) {
		if err := t.sessions.Delete(ctx, projectID, guestID); err != nil {
			return nil, err
		}

		return nil, persistence.ErrSessionNotFound
	}

	return session, nil
}

// Claim opens the guest's session for the given campaign execution. Exactly
// one concurrent claim per guest succeeds; losers observe a BusyError naming
// the owning campaign. A claim against an expired session replaces it.
func (t *Tracker) Claim(ctx context.Context, projectID, guestID, campaignID, executionID string) (*models.GuestSession, error) {
	lock := t.lockFor(guestID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()

	current, err := t.sessions.GetByGuest(ctx, projectID, guestID)
	if err != nil && !persistence.IsNotFound(err) {
		return nil, err
	}

	var expectedVersion int64

	if current != nil {
		if current.IsActive(now) {
			if current.CampaignID == campaignID && current.ExecutionID == executionID {
				return current, nil
			}

			return nil, &BusyError{GuestID: guestID, BlockingCampaignID: current.CampaignID}
		}

		// Expired window: the record is replaced in place, carrying its
		// version forward so a concurrent claimer still loses the write.
		expectedVersion = current.Version
	}

	session := &models.GuestSession{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		GuestID:     guestID,
		CampaignID:  campaignID,
		ExecutionID: executionID,
		OpenedAt:    now,
		ExpiresAt:   now.Add(models.SessionWindow),
		Version:     expectedVersion,
	}

	if err := t.sessions.SaveVersioned(ctx, session, expectedVersion); err != nil {
		if errors.Is(err, persistence.ErrSessionConflict) {
			winner, getErr := t.sessions.GetByGuest(ctx, projectID, guestID)
			if getErr == nil && winner.IsActive(now) {
				return nil, &BusyError{GuestID: guestID, BlockingCampaignID: winner.CampaignID}
			}
		}

		return nil, err
	}

	t.logger.DebugContext(ctx, "session claimed",
		"guest_id", guestID, "campaign_id", campaignID, "execution_id", executionID)

	return session, nil
}

// Touch extends the session window from the guest's latest inbound activity.
func (t *Tracker) Touch(ctx context.Context, session *models.GuestSession) error {
	session.ExpiresAt = t.now().Add(models.SessionWindow)

	return t.sessions.Save(ctx, session)
}

// SetWaiting records whether the owning execution is parked on a reply at
// the given node.
func (t *Tracker) SetWaiting(ctx context.Context, projectID, guestID, nodeID string, waiting bool) error {
	session, err := t.sessions.GetByGuest(ctx, projectID, guestID)
	if err != nil {
		return err
	}

	session.WaitingForReply = waiting
	session.CurrentNodeID = nodeID

	return t.sessions.Save(ctx, session)
}

// Release closes the session, but only when it is still owned by the given
// execution. Releasing someone else's session is a silent no-op.
func (t *Tracker) Release(ctx context.Context, projectID, guestID, executionID string) error {
	lock := t.lockFor(guestID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.sessions.GetByGuest(ctx, projectID, guestID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil
		}

		return err
	}

	if session.ExecutionID != executionID {
		return nil
	}

	return t.sessions.Delete(ctx, projectID, guestID)
}

// CreatePendingInvitation defers a campaign's first message for a guest whose
// session is held by another campaign. The invitation id is appended to the
// blocking session so the closer can resolve it.
func (t *Tracker) CreatePendingInvitation(ctx context.Context, invitation *models.PendingInvitation) error {
	lock := t.lockFor(invitation.GuestID)
	lock.Lock()
	defer lock.Unlock()

	invitation.Status = models.InvitationPendingPiggybacking

	if err := t.invitations.Save(ctx, invitation); err != nil {
		return err
	}

	session, err := t.sessions.GetByGuest(ctx, invitation.ProjectID, invitation.GuestID)
	if err != nil {
		if persistence.IsNotFound(err) {
			// The blocking session closed between the failed claim and
			// this write; the invitation stays queued for the janitor.
			return nil
		}

		return err
	}

	session.HasPendingInvitations = true
	session.PendingInvitationIDs = append(session.PendingInvitationIDs, invitation.ID)

	return t.sessions.Save(ctx, session)
}

// ResolveInvitation marks a pending invitation sent or cancelled.
func (t *Tracker) ResolveInvitation(ctx context.Context, projectID, id string, status models.PendingInvitationStatus) error {
	invitation, err := t.invitations.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}

	now := t.now()
	invitation.Status = status
	invitation.ResolvedAt = &now

	return t.invitations.Save(ctx, invitation)
}

// DeleteExpired drops every expired session in the project and returns how
// many were removed. Run periodically by the worker janitor.
func (t *Tracker) DeleteExpired(ctx context.Context, projectID string) (int, error) {
	sessions, err := t.sessions.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	now := t.now()
	removed := 0

	for _, session := range sessions {
		if session.IsActive(now) {
			continue
		}

		if err := t.sessions.Delete(ctx, projectID, session.GuestID); err != nil {
			return removed, err
		}

		removed++
	}

	if removed > 0 {
		t.logger.InfoContext(ctx, "expired sessions removed", "project_id", projectID, "count", removed)
	}

	return removed, nil
}
