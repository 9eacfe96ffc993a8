// Package events defines event types and structures for campaign and
// execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every guestflow lifecycle event.
const Topic = "guestflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Campaign lifecycle events.
	CampaignStartedEvent   EventType = "campaign.started"
	CampaignPausedEvent    EventType = "campaign.paused"
	CampaignResumedEvent   EventType = "campaign.resumed"
	CampaignCancelledEvent EventType = "campaign.cancelled"

	// Execution lifecycle events.
	ExecutionQueuedEvent    EventType = "execution.queued"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Messaging events.
	MessageDispatchedEvent  EventType = "message.dispatched"
	GuestReplyReceivedEvent EventType = "guest.reply.received"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	ProjectID  string         `json:"project_id"`
	CampaignID string         `json:"campaign_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, projectID, campaignID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		ProjectID:  projectID,
		CampaignID: campaignID,
		Metadata:   make(map[string]any),
	}
}

type CampaignStarted struct {
	BaseEvent

	ChatflowID   string `json:"chatflow_id"`
	AudienceSize int    `json:"audience_size"`
}

func (e CampaignStarted) GetType() EventType { return CampaignStartedEvent }

type CampaignPaused struct {
	BaseEvent

	PausedExecutions int `json:"paused_executions"`
}

func (e CampaignPaused) GetType() EventType { return CampaignPausedEvent }

type CampaignResumed struct {
	BaseEvent

	ResumedExecutions int `json:"resumed_executions"`
}

func (e CampaignResumed) GetType() EventType { return CampaignResumedEvent }

type CampaignCancelled struct {
	BaseEvent

	CancelledExecutions int `json:"cancelled_executions"`
}

func (e CampaignCancelled) GetType() EventType { return CampaignCancelledEvent }

// ExecutionQueued asks a worker to start one guest's execution. Campaign
// fan-out publishes one of these per guest; the orchestrator never waits on
// the outcome.
type ExecutionQueued struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	ChatflowID  string `json:"chatflow_id"`
	GuestID     string `json:"guest_id"`
}

func (e ExecutionQueued) GetType() EventType { return ExecutionQueuedEvent }

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	GuestID     string `json:"guest_id"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	NodesExecuted int    `json:"nodes_executed"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type MessageDispatched struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	MessageID   string `json:"message_id"`
	NodeID      string `json:"node_id"`
}

func (e MessageDispatched) GetType() EventType { return MessageDispatchedEvent }

type GuestReplyReceived struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	GuestID     string `json:"guest_id"`
	Reply       string `json:"reply"`
}

func (e GuestReplyReceived) GetType() EventType { return GuestReplyReceivedEvent }
