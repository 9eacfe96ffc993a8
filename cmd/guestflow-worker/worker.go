package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/cmd"
	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/eventbus"
	"github.com/guestflow/guestflow/pkg/events"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/executor"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/otelhelper"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/scheduler"
	"github.com/guestflow/guestflow/pkg/session"
)

// Worker consumes queued executions off the event bus, fires due delay and
// reply-timeout entries, and runs the periodic maintenance sweep.
type Worker struct {
	id           string
	repos        *repository.Repositories
	tracker      *session.Tracker
	scheduler    *scheduler.Scheduler
	manager      *execution.Manager
	orchestrator *campaign.Orchestrator
	eventBus     eventbus.EventBus
	cron         *cron.Cron
	tracer       trace.Tracer
	logger       *slog.Logger
}

func NewWorker(
	id string,
	store persistence.Store,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Worker {
	repos := repository.New(store)
	dispatcher := delivery.NewSimulator(repos.Messages, logger)
	reg := cmd.NewRegistry(logger, repos, dispatcher)
	tracker := session.NewTracker(repos.Sessions, repos.Invitations, logger)
	sched := scheduler.NewScheduler(logger)
	exec := executor.NewExecutor(repos.Executions, reg, tracker, sched, bus, logger).WithTracer(tracer)
	manager := execution.NewManager(repos, exec, tracker, bus, logger)
	orchestrator := campaign.NewOrchestrator(repos, manager, tracker, bus, logger).WithTracer(tracer)

	sched.Bind(manager)

	return &Worker{
		id:           id,
		repos:        repos,
		tracker:      tracker,
		scheduler:    sched,
		manager:      manager,
		orchestrator: orchestrator,
		eventBus:     bus,
		cron:         cron.New(),
		tracer:       tracer,
		logger:       logger,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Handle(events.ExecutionQueuedEvent, w.handleExecutionQueued); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	go w.scheduler.Start(ctx)

	if _, err := w.cron.AddFunc("@every 1m", func() { w.sweep(ctx) }); err != nil {
		return err
	}

	w.cron.Start()
	defer w.cron.Stop()

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker")
	case <-ctx.Done():
	}

	return nil
}

func (w *Worker) handleExecutionQueued(ctx context.Context, event any) error {
	queued, ok := event.(*events.ExecutionQueued)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event payload for execution.queued")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.execution_queued",
		attribute.String(otelhelper.ProjectIDKey, queued.ProjectID),
		attribute.String(otelhelper.ExecutionIDKey, queued.ExecutionID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	err := w.manager.Start(ctx, queued.ProjectID, queued.ExecutionID)
	if err == nil {
		return nil
	}

	var busy *session.BusyError
	if errors.As(err, &busy) {
		// Another campaign owns the guest's session; the maintenance
		// sweep will promote this execution once it closes.
		w.logger.InfoContext(ctx, "Execution deferred, session busy",
			"execution_id", queued.ExecutionID,
			"blocking_campaign_id", busy.BlockingCampaignID)

		return nil
	}

	if errors.Is(err, execution.ErrInvalidTransition) {
		// Redelivery of an execution that already started.
		return nil
	}

	otelhelper.SetError(span, err)
	w.logger.ErrorContext(ctx, "Failed to start execution",
		"execution_id", queued.ExecutionID, "error", err)

	return err
}

// sweep is the periodic maintenance pass: expired sessions are deleted,
// deferred invitations whose blocking session closed are promoted, and
// campaigns with no live executions left are completed.
func (w *Worker) sweep(ctx context.Context) {
	projects, err := w.repos.Campaigns.ProjectIDs(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Sweep failed to list projects", "error", err)

		return
	}

	for _, projectID := range projects {
		deleted, err := w.tracker.DeleteExpired(ctx, projectID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to delete expired sessions",
				"project_id", projectID, "error", err)
		} else if deleted > 0 {
			w.logger.InfoContext(ctx, "Deleted expired sessions",
				"project_id", projectID, "count", deleted)
		}

		promoted, err := w.orchestrator.PromotePending(ctx, projectID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to promote deferred executions",
				"project_id", projectID, "error", err)
		} else if promoted > 0 {
			w.logger.InfoContext(ctx, "Promoted deferred executions",
				"project_id", projectID, "count", promoted)
		}

		w.completeFinished(ctx, projectID)
	}
}

func (w *Worker) completeFinished(ctx context.Context, projectID string) {
	campaigns, err := w.orchestrator.List(ctx, projectID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list campaigns",
			"project_id", projectID, "error", err)

		return
	}

	for _, c := range campaigns {
		if c.Status != models.CampaignStatusRunning {
			continue
		}

		done, err := w.orchestrator.CompleteIfFinished(ctx, projectID, c.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to complete campaign",
				"campaign_id", c.ID, "error", err)

			continue
		}

		if done {
			w.logger.InfoContext(ctx, "Campaign finished", "campaign_id", c.ID)
		}
	}
}
