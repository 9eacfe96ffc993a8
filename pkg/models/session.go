package models

import "time"

// SessionWindow is the messaging window during which a guest may exchange
// replies with exactly one campaign. It is extended from the guest's last
// inbound activity.
const SessionWindow = 24 * time.Hour

// GuestSession is the one piece of shared mutable state between campaigns:
// at most one active session exists per guest at any time. Version supports
// optimistic concurrency on claim.
type GuestSession struct {
	ID                    string    `json:"id"`
	ProjectID             string    `json:"project_id"`
	GuestID               string    `json:"guest_id"`
	CampaignID            string    `json:"campaign_id"`
	ExecutionID           string    `json:"execution_id"`
	OpenedAt              time.Time `json:"session_opened_at"`
	ExpiresAt             time.Time `json:"session_expires_at"`
	CurrentNodeID         string    `json:"current_node_id,omitempty"`
	WaitingForReply       bool      `json:"waiting_for_reply"`
	HasPendingInvitations bool      `json:"has_pending_invitations"`
	PendingInvitationIDs  []string  `json:"pending_invitation_ids,omitempty"`
	Version               int64     `json:"version"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsActive reports whether the session window is still open.
func (s *GuestSession) IsActive(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// PendingInvitationStatus represents the state of a deferred invitation.
type PendingInvitationStatus string

const (
	InvitationPendingPiggybacking PendingInvitationStatus = "pending_piggybacking"
	InvitationSent                PendingInvitationStatus = "sent"
	InvitationCancelled           PendingInvitationStatus = "cancelled"
)

// PendingInvitation defers a campaign's message to a guest whose session is
// currently owned by a different campaign. The piggyback message is appended
// opportunistically once the blocking session closes.
type PendingInvitation struct {
	ID                 string                  `json:"id"`
	ProjectID          string                  `json:"project_id"`
	GuestID            string                  `json:"guest_id"`
	CampaignID         string                  `json:"campaign_id"`
	ExecutionID        string                  `json:"execution_id"`
	BlockingCampaignID string                  `json:"blocking_campaign_id"`
	PiggybackMessage   string                  `json:"piggyback_message,omitempty"`
	Status             PendingInvitationStatus `json:"status"`
	CreatedAt          time.Time               `json:"created_at"`
	ResolvedAt         *time.Time              `json:"resolved_at,omitempty"`
}
