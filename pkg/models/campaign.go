package models

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusReady     CampaignStatus = "ready"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// Campaign fans a chatflow out to an audience of guests. GuestFilter is
// immutable once the campaign is running; changing the audience requires a
// new campaign.
type Campaign struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	ChatflowID  string         `json:"chatflow_id" validate:"required"`
	GuestFilter GuestFilter    `json:"guest_filter"`
	Status      CampaignStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	PausedAt    *time.Time     `json:"paused_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`
}

// CampaignStats is a derived snapshot, always recomputed from the campaign's
// execution set and message log. It is never persisted.
type CampaignStats struct {
	TotalExecutions int                     `json:"total_executions"`
	ByStatus        map[ExecutionStatus]int `json:"by_status"`
	RSVPAccepted    int                     `json:"rsvp_accepted"`
	RSVPDeclined    int                     `json:"rsvp_declined"`
	RSVPPending     int                     `json:"rsvp_pending"`
	MessagesSent    int                     `json:"messages_sent"`
	MessagesFailed  int                     `json:"messages_failed"`
}
