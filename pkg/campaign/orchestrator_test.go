package campaign_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/testutil"
)

func TestOrchestrator_StartRejectsEmptyAudience(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)

	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{
		Categories: []string{"nobody-has-this"},
	})

	err := h.Orchestrator.Start(ctx, "proj", camp.ID)
	require.ErrorIs(t, err, campaign.ErrEmptyAudience)

	// No executions were created and the campaign did not start.
	executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)

	stored, err := h.Repos.Campaigns.GetByID(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, stored.Status)
}

func TestOrchestrator_StartFansOutAndRuns(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	h.SeedGuest(t, "proj", "Alice", "+15550001111")
	h.SeedGuest(t, "proj", "Bob", "+15550002222")
	h.SeedGuest(t, "proj", "Carol", "+15550003333")

	tpl := h.SeedTemplate(t, "proj", "invite", "Hi {{guest_name}}!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	stored, err := h.Repos.Campaigns.GetByID(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusRunning, stored.Status)
	require.NotNil(t, stored.StartedAt)

	// Fan-out is asynchronous; every execution ends up waiting on its reply.
	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
		if err != nil || len(executions) != 3 {
			return false
		}

		for _, exec := range executions {
			if exec.Status != models.ExecutionStatusRunning || exec.CurrentNode != "wait" {
				return false
			}
		}

		return true
	}, 2*time.Second, 10*time.Millisecond)

	messages, err := h.Repos.Messages.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestOrchestrator_StartOnlyFromDraftOrReady(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	err := h.Orchestrator.Start(ctx, "proj", camp.ID)
	require.ErrorIs(t, err, campaign.ErrInvalidTransition)

	// Let the async fan-out settle so TempDir cleanup does not race the
	// execution's file writes.
	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
		if err != nil || len(executions) != 1 {
			return false
		}

		return executions[0].Status == models.ExecutionStatusRunning && executions[0].CurrentNode == "wait"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_PauseResumeRoundTrip(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
		if err != nil || len(executions) != 1 {
			return false
		}

		return executions[0].Status == models.ExecutionStatusRunning && executions[0].CurrentNode == "wait"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Orchestrator.Pause(ctx, "proj", camp.ID))

	executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusPaused, executions[0].Status)

	require.NoError(t, h.Orchestrator.Resume(ctx, "proj", camp.ID))

	executions, err = h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)

	// Resumed from the recorded cursor, not from the trigger.
	assert.Equal(t, models.ExecutionStatusRunning, executions[0].Status)
	assert.Equal(t, "wait", executions[0].CurrentNode)
	assert.Nil(t, executions[0].PausedAt)

	// The wait node was re-entered, not the send node: still one message.
	messages, err := h.Repos.Messages.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestOrchestrator_SecondCampaignDefersBlockedGuest(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})

	flowA := h.SeedChatflow(t, "proj", "flow a", nodes, edges)
	campA := h.SeedCampaign(t, "proj", "first", flowA.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", campA.ID))

	require.Eventually(t, func() bool {
		session, err := h.Tracker.GetActive(ctx, "proj", guest.ID)

		return err == nil && session.CampaignID == campA.ID
	}, 2*time.Second, 10*time.Millisecond)

	flowB := h.SeedChatflow(t, "proj", "flow b", nodes, edges)
	campB := h.SeedCampaign(t, "proj", "second", flowB.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", campB.ID))

	executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", campB.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusPendingSession, executions[0].Status)

	invitations, err := h.Repos.Invitations.ListByGuest(ctx, "proj", guest.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, campA.ID, invitations[0].BlockingCampaignID)
	assert.Equal(t, campB.ID, invitations[0].CampaignID)
	assert.Equal(t, models.InvitationPendingPiggybacking, invitations[0].Status)

	// The blocking session still belongs to the first campaign.
	session, err := h.Tracker.GetActive(ctx, "proj", guest.ID)
	require.NoError(t, err)
	assert.Equal(t, campA.ID, session.CampaignID)
	assert.True(t, session.HasPendingInvitations)
}

func TestOrchestrator_CancelArchivesAndCancelsChildren(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)

		return err == nil && len(executions) == 1 && executions[0].Status == models.ExecutionStatusRunning
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Orchestrator.Cancel(ctx, "proj", camp.ID))

	stored, err := h.Repos.Campaigns.GetByID(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusArchived, stored.Status)
	require.NotNil(t, stored.ArchivedAt)

	executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStatusCancelled, executions[0].Status)

	// Cancelled is terminal for the campaign too.
	err = h.Orchestrator.Cancel(ctx, "proj", camp.ID)
	require.ErrorIs(t, err, campaign.ErrInvalidTransition)
}

func TestOrchestrator_StatsRecomputedFromExecutions(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "ask", "Coming?")

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "ask", Type: models.NodeTypeSendTemplate, Config: map[string]any{"template_id": tpl.ID}},
		{ID: "wait", Type: models.NodeTypeWaitReply, Config: map[string]any{}},
		{ID: "check", Type: models.NodeTypeCondition, Config: map[string]any{
			"variable": "reply", "operator": "equals", "value": "yes", "case_sensitive": false,
		}},
		{ID: "accept", Type: models.NodeTypeUpdateGuest, Config: map[string]any{"rsvp_status": string(models.RSVPAccepted)}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "ask"},
		{ID: "e2", Source: "ask", Target: "wait"},
		{ID: "e3", Source: "wait", Target: "check"},
		{ID: "e4", Source: "check", Target: "accept", SourceHandle: models.EdgeHandleTrue},
		{ID: "e5", Source: "check", Target: "finish", SourceHandle: models.EdgeHandleFalse},
		{ID: "e6", Source: "accept", Target: "finish"},
	}
	flow := h.SeedChatflow(t, "proj", "rsvp flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)

		return err == nil && len(executions) == 1 && executions[0].CurrentNode == "wait"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.Manager.HandleReply(ctx, "proj", guest.ID, "yes"))

	stats, err := h.Orchestrator.Stats(ctx, "proj", camp.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalExecutions)
	assert.Equal(t, 1, stats.ByStatus[models.ExecutionStatusCompleted])
	assert.Equal(t, 1, stats.RSVPAccepted)
	assert.Equal(t, 0, stats.RSVPDeclined)
	assert.Equal(t, 1, stats.MessagesSent)
	assert.Equal(t, 0, stats.MessagesFailed)
}

func TestOrchestrator_CompleteIfFinished(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "invite", Type: models.NodeTypeSendTemplate, Config: map[string]any{"template_id": tpl.ID}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "invite"},
		{ID: "e2", Source: "invite", Target: "finish"},
	}
	flow := h.SeedChatflow(t, "proj", "fire and forget", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	require.NoError(t, h.Orchestrator.Start(ctx, "proj", camp.ID))

	require.Eventually(t, func() bool {
		executions, err := h.Repos.Executions.ListByCampaign(ctx, "proj", camp.ID)

		return err == nil && len(executions) == 1 && executions[0].Status == models.ExecutionStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	completed, err := h.Orchestrator.CompleteIfFinished(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err := h.Repos.Campaigns.GetByID(ctx, "proj", camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}
