// Package execution manages per-guest chatflow executions: creation, the
// lifecycle actions, and the resume paths that release suspended executions.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guestflow/guestflow/pkg/eventbus"
	"github.com/guestflow/guestflow/pkg/events"
	"github.com/guestflow/guestflow/pkg/executor"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/nodes/waitreply"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/session"
)

// BulkFailure is one failed id within a bulk action.
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult partitions a bulk action into per-id outcomes. Each id is
// processed independently so one failure never blocks the rest.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// Manager is the CRUD and lifecycle layer over individual executions.
type Manager struct {
	repos    *repository.Repositories
	executor *executor.Executor
	sessions *session.Tracker
	eventBus eventbus.EventBus
	logger   *slog.Logger
}

func NewManager(
	repos *repository.Repositories,
	exec *executor.Executor,
	sessions *session.Tracker,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		repos:    repos,
		executor: exec,
		sessions: sessions,
		eventBus: bus,
		logger:   logger.With("module", "execution"),
	}
}

// Create builds an execution for one (campaign, guest) pair. Guest name and
// phone are denormalized now for display stability; a later guest edit does
// not retroactively change this execution. Variables are seeded from the
// guest's attributes.
func (m *Manager) Create(ctx context.Context, projectID, campaignID, chatflowID, guestID string, status models.ExecutionStatus) (*models.ChatflowExecution, error) {
	guest, err := m.repos.Guests.GetByID(ctx, projectID, guestID)
	if err != nil {
		return nil, err
	}

	if status == "" {
		status = models.ExecutionStatusPending
	}

	exec := &models.ChatflowExecution{
		ProjectID:  projectID,
		CampaignID: campaignID,
		ChatflowID: chatflowID,
		GuestID:    guest.ID,
		GuestName:  guest.Name,
		GuestPhone: guest.Phone,
		Status:     status,
		Variables: map[string]any{
			"guest_name":      guest.Name,
			"guest_phone":     guest.Phone,
			"category":        guest.Category,
			"invitation_type": guest.InvitationType,
			"rsvp_status":     string(guest.RSVPStatus),
		},
	}

	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return nil, err
	}

	return exec, nil
}

// Get returns one execution.
func (m *Manager) Get(ctx context.Context, projectID, executionID string) (*models.ChatflowExecution, error) {
	return m.repos.Executions.GetByID(ctx, projectID, executionID)
}

// ListByCampaign returns every execution of the campaign.
func (m *Manager) ListByCampaign(ctx context.Context, projectID, campaignID string) ([]*models.ChatflowExecution, error) {
	return m.repos.Executions.ListByCampaign(ctx, projectID, campaignID)
}

// Start transitions a pending execution to running, claims the guest's
// session for it, and walks the graph from the trigger node. A session owned
// by another campaign surfaces as a session.BusyError.
func (m *Manager) Start(ctx context.Context, projectID, executionID string) error {
	exec, err := m.repos.Executions.GetByID(ctx, projectID, executionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusPending {
		return newTransitionError("start", exec)
	}

	chatflow, err := m.repos.Chatflows.GetByID(ctx, projectID, exec.ChatflowID)
	if err != nil {
		return err
	}

	trigger := chatflow.TriggerNode()
	if trigger == nil {
		return fmt.Errorf("chatflow %s has no trigger node", chatflow.ID)
	}

	if _, err := m.sessions.Claim(ctx, projectID, exec.GuestID, exec.CampaignID, exec.ID); err != nil {
		return err
	}

	now := time.Now().UTC()
	exec.Status = models.ExecutionStatusRunning
	exec.StartedAt = &now

	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return err
	}

	m.publish(ctx, exec.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, projectID, exec.CampaignID),
		ExecutionID: exec.ID,
		GuestID:     exec.GuestID,
	})

	return m.executor.Run(ctx, projectID, exec.ID, chatflow, trigger.ID)
}

// Resume re-enters the executor at the execution's persisted cursor. Valid
// only for a running execution with a cursor present.
func (m *Manager) Resume(ctx context.Context, projectID, executionID string) error {
	exec, err := m.repos.Executions.GetByID(ctx, projectID, executionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusRunning || exec.CurrentNode == "" {
		return newTransitionError("resume", exec)
	}

	chatflow, err := m.repos.Chatflows.GetByID(ctx, projectID, exec.ChatflowID)
	if err != nil {
		return err
	}

	return m.executor.Run(ctx, projectID, exec.ID, chatflow, exec.CurrentNode)
}

// HandleReply releases an execution suspended on a wait_reply node. The
// reply text is merged into the execution variables under the node's
// configured variable name and the walk continues at the node's successor.
func (m *Manager) HandleReply(ctx context.Context, projectID, guestID, reply string) error {
	return m.release(ctx, projectID, guestID, func(record *models.NodeExecution, node *models.Node, exec *models.ChatflowExecution) {
		variable := waitreply.DefaultVariable
		if node.Config != nil {
			if name, ok := node.Config["variable"].(string); ok && name != "" {
				variable = name
			}
		}

		exec.Variables[variable] = reply
		record.ReplyReceived = true
	}, func(exec *models.ChatflowExecution) {
		m.publish(ctx, exec.ID, events.GuestReplyReceived{
			BaseEvent:   events.NewBaseEvent(events.GuestReplyReceivedEvent, projectID, exec.CampaignID),
			ExecutionID: exec.ID,
			GuestID:     guestID,
			Reply:       reply,
		})
	})
}

// HandleFormAnswers releases an execution suspended on a guest_form node,
// merging the structured answers into the execution variables and recording
// them on the node-history entry.
func (m *Manager) HandleFormAnswers(ctx context.Context, projectID, guestID string, answers map[string]any) error {
	return m.release(ctx, projectID, guestID, func(record *models.NodeExecution, _ *models.Node, exec *models.ChatflowExecution) {
		for name, value := range answers {
			exec.Variables[name] = value
		}

		record.FormResponses = answers
		record.ReplyReceived = true
	}, nil)
}

// release is the shared inbound-activity path: locate the guest's session,
// complete the waiting node, extend the session window, and continue the
// walk at the successor.
func (m *Manager) release(ctx context.Context, projectID, guestID string, mutate func(*models.NodeExecution, *models.Node, *models.ChatflowExecution), after func(*models.ChatflowExecution)) error {
	guestSession, err := m.sessions.GetActive(ctx, projectID, guestID)
	if err != nil {
		return err
	}

	exec, err := m.repos.Executions.GetByID(ctx, projectID, guestSession.ExecutionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusRunning || exec.CurrentNode == "" {
		return newTransitionError("reply", exec)
	}

	chatflow, err := m.repos.Chatflows.GetByID(ctx, projectID, exec.ChatflowID)
	if err != nil {
		return err
	}

	node := chatflow.NodeByID(exec.CurrentNode)
	if node == nil {
		return fmt.Errorf("chatflow %s has no node %s", chatflow.ID, exec.CurrentNode)
	}

	if node.Type != models.NodeTypeWaitReply && node.Type != models.NodeTypeGuestForm {
		return newTransitionError("reply", exec)
	}

	record := exec.FindNode(node.ID)
	if record == nil {
		return fmt.Errorf("execution %s: %w: %s", exec.ID, persistence.ErrNodeExecutionNotFound, node.ID)
	}

	mutate(record, node, exec)

	now := time.Now().UTC()
	record.Status = models.NodeStatusCompleted
	record.CompletedAt = &now

	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return err
	}

	if err := m.sessions.Touch(ctx, guestSession); err != nil {
		m.logger.ErrorContext(ctx, "failed to extend session window",
			"guest_id", guestID, "error", err)
	}

	if err := m.sessions.SetWaiting(ctx, projectID, guestID, node.ID, false); err != nil {
		m.logger.ErrorContext(ctx, "failed to clear session waiting flag",
			"guest_id", guestID, "error", err)
	}

	if after != nil {
		after(exec)
	}

	next := chatflow.NextNodeID(node.ID)
	if next == "" {
		next = chatflow.EndNodeID()
	}

	if next == "" {
		return nil
	}

	return m.executor.Run(ctx, projectID, exec.ID, chatflow, next)
}

// HandleResume wakes an execution suspended on a delay node once its resume
// time is due.
func (m *Manager) HandleResume(ctx context.Context, projectID, executionID string) error {
	exec, err := m.repos.Executions.GetByID(ctx, projectID, executionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusRunning || exec.CurrentNode == "" {
		return nil
	}

	chatflow, err := m.repos.Chatflows.GetByID(ctx, projectID, exec.ChatflowID)
	if err != nil {
		return err
	}

	record := exec.FindNode(exec.CurrentNode)
	if record == nil || record.Status != models.NodeStatusWaiting {
		return nil
	}

	now := time.Now().UTC()
	record.Status = models.NodeStatusCompleted
	record.CompletedAt = &now

	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return err
	}

	next := chatflow.NextNodeID(exec.CurrentNode)
	if next == "" {
		next = chatflow.EndNodeID()
	}

	if next == "" {
		return nil
	}

	return m.executor.Run(ctx, projectID, exec.ID, chatflow, next)
}

// HandleTimeout applies a suspended node's timeout policy. A reply that
// arrived before the timer fired makes this a no-op.
func (m *Manager) HandleTimeout(ctx context.Context, projectID, executionID, nodeID, action string) error {
	exec, err := m.repos.Executions.GetByID(ctx, projectID, executionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusRunning || exec.CurrentNode != nodeID {
		return nil
	}

	record := exec.FindNode(nodeID)
	if record == nil || record.Status != models.NodeStatusWaiting || record.ReplyReceived {
		return nil
	}

	now := time.Now().UTC()

	if action == protocol.TimeoutActionFail {
		record.Status = models.NodeStatusFailed
		record.Error = "timed out waiting for reply"
		record.CompletedAt = &now
		exec.Status = models.ExecutionStatusFailed
		exec.FailedAt = &now
		exec.ErrorMessage = fmt.Sprintf("node %s timed out waiting for reply", nodeID)

		if err := m.repos.Executions.Save(ctx, exec); err != nil {
			return err
		}

		m.publish(ctx, exec.ID, events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, projectID, exec.CampaignID),
			ExecutionID: exec.ID,
			NodeID:      nodeID,
			Error:       exec.ErrorMessage,
		})

		return nil
	}

	// Default "end" policy: skip the wait and route to the end node so the
	// execution closes cleanly instead of sticking forever.
	record.Status = models.NodeStatusSkipped
	record.CompletedAt = &now

	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return err
	}

	chatflow, err := m.repos.Chatflows.GetByID(ctx, projectID, exec.ChatflowID)
	if err != nil {
		return err
	}

	endID := chatflow.EndNodeID()
	if endID == "" {
		exec.Status = models.ExecutionStatusCompleted
		exec.CompletedAt = &now
		exec.CurrentPhase = "Completion"

		if err := m.repos.Executions.Save(ctx, exec); err != nil {
			return err
		}

		return m.sessions.Release(ctx, projectID, exec.GuestID, exec.ID)
	}

	return m.executor.Run(ctx, projectID, exec.ID, chatflow, endID)
}

// Promote returns a session-blocked execution to pending and starts it.
// Called once the blocking campaign's session has closed.
func (m *Manager) Promote(ctx context.Context, projectID, executionID string) error {
	exec, err := m.repos.Executions.GetByID(ctx, projectID, executionID)
	if err != nil {
		return err
	}

	if exec.Status != models.ExecutionStatusPendingSession {
		return newTransitionError("promote", exec)
	}

	exec.Status = models.ExecutionStatusPending
	if err := m.repos.Executions.Save(ctx, exec); err != nil {
		return err
	}

	return m.Start(ctx, projectID, exec.ID)
}

// Retry re-runs failed executions from scratch.
func (m *Manager) Retry(ctx context.Context, projectID string, ids []string) BulkResult {
	return m.bulk(ctx, projectID, ids, func(ctx context.Context, exec *models.ChatflowExecution) error {
		if exec.Status != models.ExecutionStatusFailed {
			return newTransitionError("retry", exec)
		}

		exec.Status = models.ExecutionStatusPending
		exec.ErrorMessage = ""
		exec.FailedAt = nil

		if err := m.repos.Executions.Save(ctx, exec); err != nil {
			return err
		}

		return m.Start(ctx, projectID, exec.ID)
	})
}

// Pause stops running executions before their next node. In-flight node work
// is never interrupted.
func (m *Manager) Pause(ctx context.Context, projectID string, ids []string) BulkResult {
	return m.bulk(ctx, projectID, ids, func(ctx context.Context, exec *models.ChatflowExecution) error {
		if exec.Status != models.ExecutionStatusRunning {
			return newTransitionError("pause", exec)
		}

		now := time.Now().UTC()
		exec.Status = models.ExecutionStatusPaused
		exec.PausedAt = &now

		return m.repos.Executions.Save(ctx, exec)
	})
}

// ResumePaused returns paused executions to running and re-enters each at its
// recorded cursor, not at the trigger.
func (m *Manager) ResumePaused(ctx context.Context, projectID string, ids []string) BulkResult {
	return m.bulk(ctx, projectID, ids, func(ctx context.Context, exec *models.ChatflowExecution) error {
		if exec.Status != models.ExecutionStatusPaused {
			return newTransitionError("resume", exec)
		}

		exec.Status = models.ExecutionStatusRunning
		exec.PausedAt = nil

		if err := m.repos.Executions.Save(ctx, exec); err != nil {
			return err
		}

		return m.Resume(ctx, projectID, exec.ID)
	})
}

// Cancel terminates executions in any state except completed/cancelled. No
// further transitions are permitted afterward.
func (m *Manager) Cancel(ctx context.Context, projectID string, ids []string) BulkResult {
	return m.bulk(ctx, projectID, ids, func(ctx context.Context, exec *models.ChatflowExecution) error {
		if exec.Status == models.ExecutionStatusCompleted || exec.Status == models.ExecutionStatusCancelled {
			return newTransitionError("cancel", exec)
		}

		now := time.Now().UTC()
		exec.Status = models.ExecutionStatusCancelled
		exec.CancelledAt = &now

		if err := m.repos.Executions.Save(ctx, exec); err != nil {
			return err
		}

		if err := m.sessions.Release(ctx, projectID, exec.GuestID, exec.ID); err != nil {
			m.logger.ErrorContext(ctx, "failed to release session on cancel",
				"execution_id", exec.ID, "error", err)
		}

		m.publish(ctx, exec.ID, events.ExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, projectID, exec.CampaignID),
			ExecutionID: exec.ID,
		})

		return nil
	})
}

// bulk runs one action per id with an independent error boundary per id.
func (m *Manager) bulk(ctx context.Context, projectID string, ids []string, action func(context.Context, *models.ChatflowExecution) error) BulkResult {
	result := BulkResult{
		Succeeded: []string{},
		Failed:    []BulkFailure{},
	}

	for _, id := range ids {
		exec, err := m.repos.Executions.GetByID(ctx, projectID, id)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: err.Error()})

			continue
		}

		if err := action(ctx, exec); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: err.Error()})

			continue
		}

		result.Succeeded = append(result.Succeeded, id)
	}

	return result
}

func (m *Manager) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.eventBus == nil {
		return
	}

	if err := m.eventBus.Publish(ctx, key, event); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
