package models

import "time"

// MessageTemplate is a stored message body with {{placeholder}} variables.
type MessageTemplate struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"    validate:"required"`
	Content   string    `json:"content" validate:"required"`
	Variables []string  `json:"variables,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageStatus tracks a message through the delivery pipeline.
type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// MessageLog records one outbound message dispatched by a send node.
type MessageLog struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	CampaignID  string        `json:"campaign_id"`
	ExecutionID string        `json:"execution_id"`
	GuestID     string        `json:"guest_id"`
	NodeID      string        `json:"node_id"`
	TemplateID  string        `json:"template_id"`
	Body        string        `json:"body"`
	Status      MessageStatus `json:"status"`
	QueuedAt    time.Time     `json:"queued_at"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
	DeliveredAt *time.Time    `json:"delivered_at,omitempty"`
	Error       string        `json:"error,omitempty"`
}
