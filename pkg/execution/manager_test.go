package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/testutil"
)

func TestManager_CreateDenormalizesGuest(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")
	guest.Category = "family"
	guest.InvitationType = "ceremony"
	require.NoError(t, h.Repos.Guests.Save(ctx, guest))

	exec, err := h.Manager.Create(ctx, "proj", "camp-1", "flow-1", guest.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPending, exec.Status)
	assert.Equal(t, "Alice", exec.GuestName)
	assert.Equal(t, "+15550001111", exec.GuestPhone)
	assert.Equal(t, "family", exec.Variables["category"])
	assert.Equal(t, "ceremony", exec.Variables["invitation_type"])

	// A later guest edit never changes the execution's display fields.
	guest.Name = "Alice Updated"
	require.NoError(t, h.Repos.Guests.Save(ctx, guest))

	stored, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.GuestName)
}

func TestManager_BulkCancelPartitionsResults(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	nodes, edges := testutil.LinearFlow(tpl.ID, map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	running, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest.ID, "")
	require.NoError(t, err)
	require.NoError(t, h.Manager.Start(ctx, "proj", running.ID))

	guest2 := h.SeedGuest(t, "proj", "Bob", "+15550002222")
	completed, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest2.ID, "")
	require.NoError(t, err)

	done, err := h.Repos.Executions.GetByID(ctx, "proj", completed.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	done.Status = models.ExecutionStatusCompleted
	done.CompletedAt = &now
	require.NoError(t, h.Repos.Executions.Save(ctx, done))

	result := h.Manager.Cancel(ctx, "proj", []string{running.ID, "nonexistent", completed.ID})

	assert.Equal(t, []string{running.ID}, result.Succeeded)
	require.Len(t, result.Failed, 2)

	byID := map[string]string{}
	for _, f := range result.Failed {
		byID[f.ID] = f.Error
	}

	assert.Contains(t, byID["nonexistent"], "not found")
	assert.Contains(t, byID[completed.ID], "cannot cancel")
}

func TestManager_RetryOnlyFromFailed(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")

	// A broken template reference fails the send node.
	nodes, edges := testutil.LinearFlow("missing-template", map[string]any{})
	flow := h.SeedChatflow(t, "proj", "flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	exec, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest.ID, "")
	require.NoError(t, err)
	require.Error(t, h.Manager.Start(ctx, "proj", exec.ID))

	// Fix the flow by creating the template, then retry.
	tpl := h.SeedTemplate(t, "proj", "invite", "Hello!")
	stored, err := h.Repos.Chatflows.GetByID(ctx, "proj", flow.ID)
	require.NoError(t, err)
	stored.NodeByID("invite").Config["template_id"] = tpl.ID
	require.NoError(t, h.Repos.Chatflows.Save(ctx, stored))

	result := h.Manager.Retry(ctx, "proj", []string{exec.ID})
	assert.Equal(t, []string{exec.ID}, result.Succeeded)

	after, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, after.Status)
	assert.Empty(t, after.ErrorMessage)
	assert.Nil(t, after.FailedAt)

	// Retrying a non-failed execution is rejected.
	second := h.Manager.Retry(ctx, "proj", []string{exec.ID})
	require.Len(t, second.Failed, 1)
	assert.Contains(t, second.Failed[0].Error, "cannot retry")
}

func TestManager_HandleReplyMergesAndContinues(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")
	tpl := h.SeedTemplate(t, "proj", "invite", "Coming? Reply yes or no.")

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "ask", Type: models.NodeTypeSendTemplate, Config: map[string]any{"template_id": tpl.ID}},
		{ID: "wait", Type: models.NodeTypeWaitReply, Config: map[string]any{"variable": "rsvp_answer"}},
		{ID: "check", Type: models.NodeTypeCondition, Config: map[string]any{
			"variable":       "rsvp_answer",
			"operator":       "equals",
			"value":          "yes",
			"case_sensitive": false,
		}},
		{ID: "confirm", Type: models.NodeTypeUpdateGuest, Config: map[string]any{
			"rsvp_status": string(models.RSVPAccepted),
		}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "ask"},
		{ID: "e2", Source: "ask", Target: "wait"},
		{ID: "e3", Source: "wait", Target: "check"},
		{ID: "e4", Source: "check", Target: "confirm", SourceHandle: models.EdgeHandleTrue},
		{ID: "e5", Source: "check", Target: "finish", SourceHandle: models.EdgeHandleFalse},
		{ID: "e6", Source: "confirm", Target: "finish"},
	}
	flow := h.SeedChatflow(t, "proj", "rsvp flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	exec, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest.ID, "")
	require.NoError(t, err)
	require.NoError(t, h.Manager.Start(ctx, "proj", exec.ID))

	require.NoError(t, h.Manager.HandleReply(ctx, "proj", guest.ID, "YES"))

	stored, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, "YES", stored.Variables["rsvp_answer"])

	waitRecord := stored.FindNode("wait")
	require.NotNil(t, waitRecord)
	assert.Equal(t, models.NodeStatusCompleted, waitRecord.Status)
	assert.True(t, waitRecord.ReplyReceived)

	checkRecord := stored.FindNode("check")
	require.NotNil(t, checkRecord)
	require.NotNil(t, checkRecord.ConditionResult)
	assert.True(t, *checkRecord.ConditionResult)

	updated, err := h.Repos.Guests.GetByID(ctx, "proj", guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPAccepted, updated.RSVPStatus)
}

func TestManager_HandleFormAnswers(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "form", Type: models.NodeTypeGuestForm, Config: map[string]any{
			"fields": []any{"dietary", "song_request"},
		}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "form"},
		{ID: "e2", Source: "form", Target: "finish"},
	}
	flow := h.SeedChatflow(t, "proj", "details flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	exec, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest.ID, "")
	require.NoError(t, err)
	require.NoError(t, h.Manager.Start(ctx, "proj", exec.ID))

	answers := map[string]any{"dietary": "vegetarian", "song_request": "anything by Prince"}
	require.NoError(t, h.Manager.HandleFormAnswers(ctx, "proj", guest.ID, answers))

	stored, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, "vegetarian", stored.Variables["dietary"])

	formRecord := stored.FindNode("form")
	require.NotNil(t, formRecord)
	assert.Equal(t, answers, formRecord.FormResponses)
}

func TestManager_HandleResumeWakesDelayedExecution(t *testing.T) {
	h := testutil.NewHarness(t)
	ctx := context.Background()

	guest := h.SeedGuest(t, "proj", "Alice", "+15550001111")

	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "hold", Type: models.NodeTypeDelay, Config: map[string]any{"duration": float64(2), "unit": "hours"}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "hold"},
		{ID: "e2", Source: "hold", Target: "finish"},
	}
	flow := h.SeedChatflow(t, "proj", "delayed flow", nodes, edges)
	camp := h.SeedCampaign(t, "proj", "launch", flow.ID, models.GuestFilter{})

	exec, err := h.Manager.Create(ctx, "proj", camp.ID, flow.ID, guest.ID, "")
	require.NoError(t, err)
	require.NoError(t, h.Manager.Start(ctx, "proj", exec.ID))

	stored, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, stored.Status)
	assert.Equal(t, "hold", stored.CurrentNode)
	assert.Equal(t, 1, h.Scheduler.Pending())

	// The scheduler fires when the resume time is due.
	require.NoError(t, h.Manager.HandleResume(ctx, "proj", exec.ID))

	after, err := h.Repos.Executions.GetByID(ctx, "proj", exec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, after.Status)
}
