package models

import "time"

// ExecutionStatus represents the lifecycle state of a per-guest execution.
type ExecutionStatus string

const (
	ExecutionStatusPending        ExecutionStatus = "pending"
	ExecutionStatusPendingSession ExecutionStatus = "pending_session"
	ExecutionStatusQueued         ExecutionStatus = "queued"
	ExecutionStatusRunning        ExecutionStatus = "running"
	ExecutionStatusPaused         ExecutionStatus = "paused"
	ExecutionStatusCompleted      ExecutionStatus = "completed"
	ExecutionStatusFailed         ExecutionStatus = "failed"
	ExecutionStatusCancelled      ExecutionStatus = "cancelled"
)

// NodeExecutionStatus defines the possible states of one node-history entry.
type NodeExecutionStatus string

const (
	NodeStatusPending   NodeExecutionStatus = "pending"
	NodeStatusRunning   NodeExecutionStatus = "running"
	NodeStatusCompleted NodeExecutionStatus = "completed"
	NodeStatusFailed    NodeExecutionStatus = "failed"
	NodeStatusSkipped   NodeExecutionStatus = "skipped"
	NodeStatusWaiting   NodeExecutionStatus = "waiting"
)

// NodeExecution is one element of an execution's node history. Entries are
// append-only: once appended, a node_id is never removed, only updated in
// place.
type NodeExecution struct {
	NodeID      string              `json:"node_id"`
	NodeType    NodeType            `json:"node_type"`
	Label       string              `json:"label,omitempty"`
	Status      NodeExecutionStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Input       map[string]any      `json:"input,omitempty"`
	Output      map[string]any      `json:"output,omitempty"`
	Error       string              `json:"error,omitempty"`

	// Wait-node fields.
	WaitingSince  *time.Time `json:"waiting_since,omitempty"`
	TimeoutAt     *time.Time `json:"timeout_at,omitempty"`
	ReplyReceived bool       `json:"reply_received,omitempty"`

	// Branch-node fields.
	ConditionResult *bool `json:"condition_result,omitempty"`

	// Form-node fields.
	FormResponses map[string]any `json:"form_responses,omitempty"`

	// Idempotency guard for send nodes: set once a message has been
	// dispatched so a replay of this node never dispatches twice.
	MessageSent bool `json:"message_sent,omitempty"`
}

// ChatflowExecution is one guest's live instance of a chatflow run. Guest
// name and phone are denormalized at creation time for display stability; a
// later guest edit does not retroactively change a past execution.
type ChatflowExecution struct {
	ID           string           `json:"id"`
	ProjectID    string           `json:"project_id"`
	CampaignID   string           `json:"campaign_id"`
	ChatflowID   string           `json:"chatflow_id"`
	GuestID      string           `json:"guest_id"`
	GuestName    string           `json:"guest_name"`
	GuestPhone   string           `json:"guest_phone"`
	Status       ExecutionStatus  `json:"status"`
	CurrentNode  string           `json:"current_node_id"`
	CurrentPhase string           `json:"current_phase"`
	Variables    map[string]any   `json:"variables"`
	ErrorMessage string           `json:"error_message,omitempty"`
	NodeHistory  []*NodeExecution `json:"node_history"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	PausedAt     *time.Time       `json:"paused_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	FailedAt     *time.Time       `json:"failed_at,omitempty"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty"`
}

// FindNode returns the node-history entry for the given node id, or nil.
func (e *ChatflowExecution) FindNode(nodeID string) *NodeExecution {
	for _, ne := range e.NodeHistory {
		if ne.NodeID == nodeID {
			return ne
		}
	}

	return nil
}

// AppendNode appends a new node-history entry.
func (e *ChatflowExecution) AppendNode(ne *NodeExecution) {
	e.NodeHistory = append(e.NodeHistory, ne)
}

// PhaseForNode maps a node type to its display phase. Phases are purely
// presentational, not state-machine states.
func PhaseForNode(t NodeType) string {
	switch t {
	case NodeTypeTrigger:
		return "Starting"
	case NodeTypeSendTemplate:
		return "Sending Message"
	case NodeTypeWaitReply:
		return "Awaiting Reply"
	case NodeTypeCondition:
		return "Evaluating Reply"
	case NodeTypeDelay:
		return "Scheduled Wait"
	case NodeTypeGuestForm:
		return "Collecting Details"
	case NodeTypeUpdateGuest:
		return "Updating Guest"
	case NodeTypeEnd:
		return "Completion"
	default:
		return string(t)
	}
}
