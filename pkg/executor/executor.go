// Package executor walks a single execution through its chatflow graph, one
// node at a time.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/guestflow/guestflow/pkg/eventbus"
	"github.com/guestflow/guestflow/pkg/events"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/otelhelper"
	"github.com/guestflow/guestflow/pkg/protocol"
	"github.com/guestflow/guestflow/pkg/registry"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/session"
)

// Scheduler accepts time-ordered wake-ups for suspended executions. Entries
// survive only in memory; a missed wake-up is recovered by re-running the
// execution from its persisted cursor.
type Scheduler interface {
	// ScheduleResume wakes the execution unconditionally at the given time
	// (delay nodes).
	ScheduleResume(projectID, executionID string, at time.Time)

	// ScheduleTimeout fires the node's timeout policy at the given time
	// unless a reply released the wait first.
	ScheduleTimeout(projectID, executionID, nodeID, action string, at time.Time)
}

// Executor interprets chatflow nodes against execution state. Within one
// execution node interpretation is strictly sequential: a successor never
// starts before the current node's completion is durably recorded, which
// makes the history replayable after a crash.
type Executor struct {
	executions *repository.ExecutionRepository
	registry   *registry.Registry
	sessions   *session.Tracker
	scheduler  Scheduler
	eventBus   eventbus.EventBus
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewExecutor(
	executions *repository.ExecutionRepository,
	reg *registry.Registry,
	sessions *session.Tracker,
	scheduler Scheduler,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		executions: executions,
		registry:   reg,
		sessions:   sessions,
		scheduler:  scheduler,
		eventBus:   bus,
		tracer:     noop.NewTracerProvider().Tracer("executor"),
		logger:     logger.With("module", "executor"),
	}
}

// WithTracer replaces the no-op tracer.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Run advances the execution starting at startNodeID until the graph ends, a
// node suspends, or a node fails. The execution must already be running; a
// pause observed between nodes stops the walk without error, which is how
// pause semantics work: in-flight node work is never interrupted, only the
// next node is prevented from starting.
func (e *Executor) Run(ctx context.Context, projectID, executionID string, chatflow *models.Chatflow, startNodeID string) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.run",
		attribute.String(otelhelper.ProjectIDKey, projectID),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.ChatflowIDKey, chatflow.ID),
	)
	defer span.End()

	nodeID := startNodeID

	for nodeID != "" {
		execution, err := e.executions.GetByID(ctx, projectID, executionID)
		if err != nil {
			otelhelper.SetError(span, err)

			return err
		}

		if execution.Status != models.ExecutionStatusRunning {
			e.logger.DebugContext(ctx, "execution not running, stopping walk",
				"execution_id", executionID, "status", execution.Status)

			return nil
		}

		next, err := e.step(ctx, execution, chatflow, nodeID)
		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, nodeID))

			return err
		}

		nodeID = next
	}

	return nil
}

// step interprets one node and returns the id of the next node to run, or ""
// when the walk stops (suspension, completion, failure).
func (e *Executor) step(ctx context.Context, execution *models.ChatflowExecution, chatflow *models.Chatflow, nodeID string) (string, error) {
	node := chatflow.NodeByID(nodeID)
	if node == nil {
		err := fmt.Errorf("chatflow %s has no node %s", chatflow.ID, nodeID)

		return "", e.fail(ctx, execution, nil, err)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	now := time.Now().UTC()

	// Reuse the node-history entry on replay so the idempotency guards it
	// carries survive a crash.
	record := execution.FindNode(nodeID)
	if record == nil {
		record = &models.NodeExecution{
			NodeID:    node.ID,
			NodeType:  node.Type,
			Label:     node.Label,
			Status:    models.NodeStatusRunning,
			StartedAt: now,
			Input:     node.Config,
		}
		execution.AppendNode(record)
	} else {
		record.Status = models.NodeStatusRunning
		record.Error = ""
	}

	execution.CurrentNode = node.ID
	execution.CurrentPhase = models.PhaseForNode(node.Type)

	// The cursor and the running record are durable before any side effect.
	if err := e.executions.Save(ctx, execution); err != nil {
		return "", err
	}

	handler, err := e.registry.Create(node)
	if err != nil {
		return "", e.fail(ctx, execution, record, err)
	}

	state := &protocol.ExecutionState{
		Execution: execution,
		Chatflow:  chatflow,
		Node:      node,
		Record:    record,
	}

	outcome, err := handler.Interpret(ctx, state)
	if err != nil {
		return "", e.fail(ctx, execution, record, err)
	}

	if outcome.Output != nil {
		record.Output = outcome.Output
	}

	switch outcome.Kind {
	case protocol.OutcomeAdvance:
		return e.advance(ctx, execution, chatflow, node, record, outcome)
	case protocol.OutcomeSuspend:
		return "", e.suspend(ctx, execution, node, record, outcome)
	case protocol.OutcomeComplete:
		completedAt := time.Now().UTC()
		record.Status = models.NodeStatusCompleted
		record.CompletedAt = &completedAt

		return "", e.complete(ctx, execution)
	default:
		return "", e.fail(ctx, execution, record, fmt.Errorf("node %s returned unknown outcome %q", node.ID, outcome.Kind))
	}
}

func (e *Executor) advance(ctx context.Context, execution *models.ChatflowExecution, chatflow *models.Chatflow, node *models.Node, record *models.NodeExecution, outcome protocol.Outcome) (string, error) {
	completedAt := time.Now().UTC()
	record.Status = models.NodeStatusCompleted
	record.CompletedAt = &completedAt

	next := outcome.NextNodeID
	if next == "" {
		next = chatflow.NextNodeID(node.ID)
	}

	if next == "" {
		// Graph ran out without an end node.
		return "", e.complete(ctx, execution)
	}

	return next, e.executions.Save(ctx, execution)
}

func (e *Executor) suspend(ctx context.Context, execution *models.ChatflowExecution, node *models.Node, record *models.NodeExecution, outcome protocol.Outcome) error {
	record.Status = models.NodeStatusWaiting

	if err := e.executions.Save(ctx, execution); err != nil {
		return err
	}

	if outcome.WaitingForReply {
		if err := e.sessions.SetWaiting(ctx, execution.ProjectID, execution.GuestID, node.ID, true); err != nil {
			e.logger.ErrorContext(ctx, "failed to mark session waiting",
				"execution_id", execution.ID, "guest_id", execution.GuestID, "error", err)
		}
	}

	if outcome.TimeoutAt != nil {
		e.scheduler.ScheduleTimeout(execution.ProjectID, execution.ID, node.ID, outcome.TimeoutAction, *outcome.TimeoutAt)
	}

	if outcome.ResumeAt != nil {
		e.scheduler.ScheduleResume(execution.ProjectID, execution.ID, *outcome.ResumeAt)
	}

	e.logger.DebugContext(ctx, "execution suspended",
		"execution_id", execution.ID, "node_id", node.ID, "waiting_for_reply", outcome.WaitingForReply)

	return nil
}

func (e *Executor) complete(ctx context.Context, execution *models.ChatflowExecution) error {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.CurrentPhase = "Completion"

	if err := e.executions.Save(ctx, execution); err != nil {
		return err
	}

	if err := e.sessions.Release(ctx, execution.ProjectID, execution.GuestID, execution.ID); err != nil {
		e.logger.ErrorContext(ctx, "failed to release guest session",
			"execution_id", execution.ID, "guest_id", execution.GuestID, "error", err)
	}

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, execution.ProjectID, execution.CampaignID),
		ExecutionID:   execution.ID,
		NodesExecuted: len(execution.NodeHistory),
	})

	e.logger.InfoContext(ctx, "execution completed",
		"execution_id", execution.ID, "guest_id", execution.GuestID, "nodes", len(execution.NodeHistory))

	return nil
}

// fail records the node error, terminates the execution as failed, and
// returns the original error. Already-completed nodes are never rolled back.
func (e *Executor) fail(ctx context.Context, execution *models.ChatflowExecution, record *models.NodeExecution, cause error) error {
	now := time.Now().UTC()

	nodeID := ""

	if record != nil {
		nodeID = record.NodeID
		record.Status = models.NodeStatusFailed
		record.Error = cause.Error()
		record.CompletedAt = &now
	}

	execution.Status = models.ExecutionStatusFailed
	execution.FailedAt = &now
	execution.ErrorMessage = cause.Error()

	if err := e.executions.Save(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist failed execution",
			"execution_id", execution.ID, "error", err)
	}

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.ProjectID, execution.CampaignID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		Error:       cause.Error(),
	})

	e.logger.WarnContext(ctx, "execution failed",
		"execution_id", execution.ID, "node_id", nodeID, "error", cause)

	return cause
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
