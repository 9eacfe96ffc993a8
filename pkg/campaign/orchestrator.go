// Package campaign owns the campaign lifecycle: audience resolution, fan-out
// of per-guest executions, lifecycle propagation, and derived statistics.
package campaign

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/guestflow/guestflow/pkg/eventbus"
	"github.com/guestflow/guestflow/pkg/events"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/otelhelper"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/session"
)

// Orchestrator drives campaigns from draft through archive.
type Orchestrator struct {
	repos    *repository.Repositories
	manager  *execution.Manager
	sessions *session.Tracker
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewOrchestrator(
	repos *repository.Repositories,
	manager *execution.Manager,
	sessions *session.Tracker,
	bus eventbus.EventBus,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		repos:    repos,
		manager:  manager,
		sessions: sessions,
		eventBus: bus,
		tracer:   noop.NewTracerProvider().Tracer("campaign"),
		logger:   logger.With("module", "campaign"),
	}
}

// WithTracer replaces the no-op tracer.
func (o *Orchestrator) WithTracer(tracer trace.Tracer) *Orchestrator {
	o.tracer = tracer

	return o
}

// Create persists a new draft campaign.
func (o *Orchestrator) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.Status = models.CampaignStatusDraft

	return o.repos.Campaigns.Save(ctx, campaign)
}

// Get returns one campaign.
func (o *Orchestrator) Get(ctx context.Context, projectID, campaignID string) (*models.Campaign, error) {
	return o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
}

// List returns every campaign in the project.
func (o *Orchestrator) List(ctx context.Context, projectID string) ([]*models.Campaign, error) {
	return o.repos.Campaigns.ListByProject(ctx, projectID)
}

// Start resolves the audience and fans out one execution per matched guest.
// Guests whose session is owned by another campaign get a pending invitation
// and an execution parked in pending_session; everyone else gets a pending
// execution that is started asynchronously. Per-guest failures are logged
// and never abort the remaining fan-out.
func (o *Orchestrator) Start(ctx context.Context, projectID, campaignID string) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "campaign.start",
		attribute.String(otelhelper.ProjectIDKey, projectID),
		attribute.String(otelhelper.CampaignIDKey, campaignID),
	)
	defer span.End()

	campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusReady {
		return newTransitionError("start", campaign)
	}

	chatflow, err := o.repos.Chatflows.GetByID(ctx, projectID, campaign.ChatflowID)
	if err != nil {
		return err
	}

	guests, err := o.repos.Guests.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	audience := FilterGuests(guests, campaign.GuestFilter)
	if len(audience) == 0 {
		return ErrEmptyAudience
	}

	now := time.Now().UTC()
	campaign.Status = models.CampaignStatusRunning
	campaign.StartedAt = &now

	if err := o.repos.Campaigns.Save(ctx, campaign); err != nil {
		return err
	}

	for _, guest := range audience {
		if err := o.fanOutGuest(ctx, campaign, chatflow, guest); err != nil {
			o.logger.ErrorContext(ctx, "fan-out failed for guest",
				"campaign_id", campaign.ID, "guest_id", guest.ID, "error", err)
		}
	}

	o.publish(ctx, campaign.ID, events.CampaignStarted{
		BaseEvent:    events.NewBaseEvent(events.CampaignStartedEvent, projectID, campaign.ID),
		ChatflowID:   chatflow.ID,
		AudienceSize: len(audience),
	})

	o.logger.InfoContext(ctx, "campaign started",
		"campaign_id", campaign.ID, "audience_size", len(audience))

	return nil
}

func (o *Orchestrator) fanOutGuest(ctx context.Context, campaign *models.Campaign, chatflow *models.Chatflow, guest *models.Guest) error {
	active, err := o.sessions.GetActive(ctx, campaign.ProjectID, guest.ID)
	if err == nil && active.CampaignID != campaign.ID {
		// The guest's messaging window belongs to another campaign: defer
		// with a pending invitation instead of disturbing it.
		exec, err := o.manager.Create(ctx, campaign.ProjectID, campaign.ID, chatflow.ID, guest.ID, models.ExecutionStatusPendingSession)
		if err != nil {
			return err
		}

		return o.sessions.CreatePendingInvitation(ctx, &models.PendingInvitation{
			ProjectID:          campaign.ProjectID,
			GuestID:            guest.ID,
			CampaignID:         campaign.ID,
			ExecutionID:        exec.ID,
			BlockingCampaignID: active.CampaignID,
		})
	}

	exec, err := o.manager.Create(ctx, campaign.ProjectID, campaign.ID, chatflow.ID, guest.ID, models.ExecutionStatusPending)
	if err != nil {
		return err
	}

	o.startAsync(ctx, campaign, chatflow, exec)

	return nil
}

// startAsync hands the execution to a worker through the event bus, or to a
// goroutine when no bus is wired. Errors surface on the execution record,
// never to the campaign caller.
func (o *Orchestrator) startAsync(ctx context.Context, campaign *models.Campaign, chatflow *models.Chatflow, exec *models.ChatflowExecution) {
	if o.eventBus != nil {
		o.publish(ctx, exec.ID, events.ExecutionQueued{
			BaseEvent:   events.NewBaseEvent(events.ExecutionQueuedEvent, campaign.ProjectID, campaign.ID),
			ExecutionID: exec.ID,
			ChatflowID:  chatflow.ID,
			GuestID:     exec.GuestID,
		})

		return
	}

	go func() {
		if err := o.manager.Start(context.WithoutCancel(ctx), campaign.ProjectID, exec.ID); err != nil {
			o.logger.Error("async execution start failed",
				"campaign_id", campaign.ID, "execution_id", exec.ID, "error", err)
		}
	}()
}

// Pause stops a running campaign and pauses its running children.
func (o *Orchestrator) Pause(ctx context.Context, projectID, campaignID string) error {
	campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status != models.CampaignStatusRunning {
		return newTransitionError("pause", campaign)
	}

	now := time.Now().UTC()
	campaign.Status = models.CampaignStatusPaused
	campaign.PausedAt = &now

	if err := o.repos.Campaigns.Save(ctx, campaign); err != nil {
		return err
	}

	ids, err := o.childIDs(ctx, projectID, campaignID, models.ExecutionStatusRunning)
	if err != nil {
		return err
	}

	result := o.manager.Pause(ctx, projectID, ids)

	o.publish(ctx, campaign.ID, events.CampaignPaused{
		BaseEvent:        events.NewBaseEvent(events.CampaignPausedEvent, projectID, campaign.ID),
		PausedExecutions: len(result.Succeeded),
	})

	return nil
}

// Resume returns a paused campaign to running and resumes its paused
// children, each from its recorded cursor.
func (o *Orchestrator) Resume(ctx context.Context, projectID, campaignID string) error {
	campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status != models.CampaignStatusPaused {
		return newTransitionError("resume", campaign)
	}

	campaign.Status = models.CampaignStatusRunning
	campaign.PausedAt = nil

	if err := o.repos.Campaigns.Save(ctx, campaign); err != nil {
		return err
	}

	ids, err := o.childIDs(ctx, projectID, campaignID, models.ExecutionStatusPaused)
	if err != nil {
		return err
	}

	result := o.manager.ResumePaused(ctx, projectID, ids)

	o.publish(ctx, campaign.ID, events.CampaignResumed{
		BaseEvent:         events.NewBaseEvent(events.CampaignResumedEvent, projectID, campaign.ID),
		ResumedExecutions: len(result.Succeeded),
	})

	return nil
}

// Cancel archives the campaign and cancels every child execution that has
// not already reached a terminal state.
func (o *Orchestrator) Cancel(ctx context.Context, projectID, campaignID string) error {
	campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status == models.CampaignStatusCompleted || campaign.Status == models.CampaignStatusArchived {
		return newTransitionError("cancel", campaign)
	}

	now := time.Now().UTC()
	campaign.Status = models.CampaignStatusArchived
	campaign.ArchivedAt = &now

	if err := o.repos.Campaigns.Save(ctx, campaign); err != nil {
		return err
	}

	ids, err := o.childIDs(ctx, projectID, campaignID,
		models.ExecutionStatusPending,
		models.ExecutionStatusPendingSession,
		models.ExecutionStatusQueued,
		models.ExecutionStatusRunning,
		models.ExecutionStatusPaused,
	)
	if err != nil {
		return err
	}

	result := o.manager.Cancel(ctx, projectID, ids)

	o.publish(ctx, campaign.ID, events.CampaignCancelled{
		BaseEvent:           events.NewBaseEvent(events.CampaignCancelledEvent, projectID, campaign.ID),
		CancelledExecutions: len(result.Succeeded),
	})

	return nil
}

// Stats recomputes the campaign's statistics from its execution set and
// message log. Nothing is cached.
func (o *Orchestrator) Stats(ctx context.Context, projectID, campaignID string) (*models.CampaignStats, error) {
	if _, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID); err != nil {
		return nil, err
	}

	executions, err := o.repos.Executions.ListByCampaign(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}

	stats := &models.CampaignStats{
		TotalExecutions: len(executions),
		ByStatus:        make(map[models.ExecutionStatus]int),
	}

	for _, exec := range executions {
		stats.ByStatus[exec.Status]++

		switch exec.Variables["rsvp_status"] {
		case string(models.RSVPAccepted):
			stats.RSVPAccepted++
		case string(models.RSVPDeclined):
			stats.RSVPDeclined++
		default:
			stats.RSVPPending++
		}
	}

	messages, err := o.repos.Messages.ListByCampaign(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}

	for _, message := range messages {
		switch message.Status {
		case models.MessageStatusSent, models.MessageStatusDelivered:
			stats.MessagesSent++
		case models.MessageStatusFailed:
			stats.MessagesFailed++
		}
	}

	return stats, nil
}

// CompleteIfFinished marks a running campaign completed once every child
// execution has reached a terminal state. Called periodically by the worker.
func (o *Orchestrator) CompleteIfFinished(ctx context.Context, projectID, campaignID string) (bool, error) {
	campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, campaignID)
	if err != nil {
		return false, err
	}

	if campaign.Status != models.CampaignStatusRunning {
		return false, nil
	}

	executions, err := o.repos.Executions.ListByCampaign(ctx, projectID, campaignID)
	if err != nil {
		return false, err
	}

	if len(executions) == 0 {
		return false, nil
	}

	for _, exec := range executions {
		switch exec.Status {
		case models.ExecutionStatusCompleted, models.ExecutionStatusFailed, models.ExecutionStatusCancelled:
		default:
			return false, nil
		}
	}

	now := time.Now().UTC()
	campaign.Status = models.CampaignStatusCompleted
	campaign.CompletedAt = &now

	if err := o.repos.Campaigns.Save(ctx, campaign); err != nil {
		return false, err
	}

	o.logger.InfoContext(ctx, "campaign completed", "campaign_id", campaignID)

	return true, nil
}

// PromotePending resolves deferred invitations whose blocking session has
// closed. Each resolvable invitation promotes its execution to pending and
// starts it; invitations of archived or cancelled campaigns are cancelled
// along with their executions. Returns how many executions were started.
func (o *Orchestrator) PromotePending(ctx context.Context, projectID string) (int, error) {
	invitations, err := o.repos.Invitations.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	promoted := 0

	for _, inv := range invitations {
		if inv.Status != models.InvitationPendingPiggybacking {
			continue
		}

		campaign, err := o.repos.Campaigns.GetByID(ctx, projectID, inv.CampaignID)
		if err != nil {
			o.logger.ErrorContext(ctx, "failed to load campaign for invitation",
				"invitation_id", inv.ID, "error", err)

			continue
		}

		if campaign.Status == models.CampaignStatusArchived {
			o.manager.Cancel(ctx, projectID, []string{inv.ExecutionID})

			if err := o.sessions.ResolveInvitation(ctx, projectID, inv.ID, models.InvitationCancelled); err != nil {
				o.logger.ErrorContext(ctx, "failed to cancel invitation",
					"invitation_id", inv.ID, "error", err)
			}

			continue
		}

		if campaign.Status != models.CampaignStatusRunning {
			continue
		}

		// Still blocked while the owning session is open.
		if _, err := o.sessions.GetActive(ctx, projectID, inv.GuestID); err == nil {
			continue
		} else if !errors.Is(err, persistence.ErrSessionNotFound) {
			return promoted, err
		}

		if err := o.manager.Promote(ctx, projectID, inv.ExecutionID); err != nil {
			o.logger.ErrorContext(ctx, "failed to promote deferred execution",
				"execution_id", inv.ExecutionID, "error", err)

			continue
		}

		if err := o.sessions.ResolveInvitation(ctx, projectID, inv.ID, models.InvitationSent); err != nil {
			o.logger.ErrorContext(ctx, "failed to resolve invitation",
				"invitation_id", inv.ID, "error", err)
		}

		promoted++
	}

	return promoted, nil
}

func (o *Orchestrator) childIDs(ctx context.Context, projectID, campaignID string, statuses ...models.ExecutionStatus) ([]string, error) {
	executions, err := o.repos.Executions.ListByCampaign(ctx, projectID, campaignID)
	if err != nil {
		return nil, err
	}

	var ids []string

	for _, exec := range executions {
		for _, status := range statuses {
			if exec.Status == status {
				ids = append(ids, exec.ID)

				break
			}
		}
	}

	return ids, nil
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, key, event); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
