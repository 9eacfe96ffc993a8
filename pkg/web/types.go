// Package web provides the REST surface over campaigns, chatflows, guests,
// and executions.
package web

import "github.com/guestflow/guestflow/pkg/models"

// CreateCampaignRequest is the body for creating a draft campaign.
type CreateCampaignRequest struct {
	Name        string             `json:"name"        validate:"required,min=3"`
	ChatflowID  string             `json:"chatflow_id" validate:"required"`
	GuestFilter models.GuestFilter `json:"guest_filter"`
}

// CreateChatflowRequest is the body for creating a draft chatflow.
type CreateChatflowRequest struct {
	Name  string         `json:"name"  validate:"required,min=3"`
	Nodes []*models.Node `json:"nodes" validate:"required,dive"`
	Edges []*models.Edge `json:"edges" validate:"dive"`
}

// CreateGuestRequest is the body for registering a guest.
type CreateGuestRequest struct {
	Name           string   `json:"name"  validate:"required"`
	Phone          string   `json:"phone" validate:"required"`
	Category       string   `json:"category"`
	InvitationType string   `json:"invitation_type"`
	Tags           []string `json:"tags"`
	HasPlusOne     bool     `json:"has_plus_one"`
}

// CreateTemplateRequest is the body for storing a message template.
type CreateTemplateRequest struct {
	Name    string `json:"name"    validate:"required"`
	Content string `json:"content" validate:"required"`
}

// BulkActionRequest names the executions a bulk lifecycle action targets.
type BulkActionRequest struct {
	ExecutionIDs []string `json:"execution_ids" validate:"required,min=1"`
}

// InboundReplyRequest is the body of the reply webhook.
type InboundReplyRequest struct {
	GuestID string `json:"guest_id" validate:"required"`
	Message string `json:"message"  validate:"required"`
}

// FormAnswersRequest is the body of the guest-form webhook.
type FormAnswersRequest struct {
	GuestID string         `json:"guest_id" validate:"required"`
	Answers map[string]any `json:"answers"  validate:"required,min=1"`
}
