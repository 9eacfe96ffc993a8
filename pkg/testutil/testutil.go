// Package testutil assembles a fully wired engine over the file store for
// package tests.
package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/executor"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/nodes/condition"
	"github.com/guestflow/guestflow/pkg/nodes/delay"
	"github.com/guestflow/guestflow/pkg/nodes/end"
	"github.com/guestflow/guestflow/pkg/nodes/guestform"
	"github.com/guestflow/guestflow/pkg/nodes/sendtemplate"
	"github.com/guestflow/guestflow/pkg/nodes/trigger"
	"github.com/guestflow/guestflow/pkg/nodes/updateguest"
	"github.com/guestflow/guestflow/pkg/nodes/waitreply"
	"github.com/guestflow/guestflow/pkg/persistence/file"
	"github.com/guestflow/guestflow/pkg/registry"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/scheduler"
	"github.com/guestflow/guestflow/pkg/session"
)

// Harness is a complete engine wired over a throwaway file store, with no
// event bus so lifecycle actions run synchronously where possible.
type Harness struct {
	Repos        *repository.Repositories
	Tracker      *session.Tracker
	Registry     *registry.Registry
	Scheduler    *scheduler.Scheduler
	Executor     *executor.Executor
	Manager      *execution.Manager
	Orchestrator *campaign.Orchestrator
	Dispatcher   *delivery.Simulator
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	logger := slog.Default()
	repos := repository.New(file.NewStore(t.TempDir()))
	tracker := session.NewTracker(repos.Sessions, repos.Invitations, logger)
	dispatcher := delivery.NewSimulator(repos.Messages, logger)

	reg := registry.NewRegistry(logger)
	reg.Register(trigger.NewFactory())
	reg.Register(sendtemplate.NewFactory(repos.Templates, dispatcher))
	reg.Register(waitreply.NewFactory())
	reg.Register(condition.NewFactory())
	reg.Register(delay.NewFactory())
	reg.Register(guestform.NewFactory())
	reg.Register(updateguest.NewFactory(repos.Guests))
	reg.Register(end.NewFactory())

	sched := scheduler.NewScheduler(logger)
	exec := executor.NewExecutor(repos.Executions, reg, tracker, sched, nil, logger)
	manager := execution.NewManager(repos, exec, tracker, nil, logger)
	sched.Bind(manager)

	return &Harness{
		Repos:        repos,
		Tracker:      tracker,
		Registry:     reg,
		Scheduler:    sched,
		Executor:     exec,
		Manager:      manager,
		Orchestrator: campaign.NewOrchestrator(repos, manager, tracker, nil, logger),
		Dispatcher:   dispatcher,
	}
}

// SeedGuest stores a guest with sensible defaults.
func (h *Harness) SeedGuest(t *testing.T, projectID, name, phone string) *models.Guest {
	t.Helper()

	guest := &models.Guest{ProjectID: projectID, Name: name, Phone: phone}
	require.NoError(t, h.Repos.Guests.Save(context.Background(), guest))

	return guest
}

// SeedTemplate stores a message template.
func (h *Harness) SeedTemplate(t *testing.T, projectID, name, content string) *models.MessageTemplate {
	t.Helper()

	tpl := &models.MessageTemplate{ProjectID: projectID, Name: name, Content: content}
	require.NoError(t, h.Repos.Templates.Save(context.Background(), tpl))

	return tpl
}

// SeedChatflow stores a published chatflow.
func (h *Harness) SeedChatflow(t *testing.T, projectID, name string, nodes []*models.Node, edges []*models.Edge) *models.Chatflow {
	t.Helper()

	flow := &models.Chatflow{
		ProjectID: projectID,
		Name:      name,
		Status:    models.ChatflowStatusPublished,
		Nodes:     nodes,
		Edges:     edges,
	}
	require.NoError(t, h.Repos.Chatflows.Save(context.Background(), flow))

	return flow
}

// SeedCampaign stores a draft campaign over the chatflow.
func (h *Harness) SeedCampaign(t *testing.T, projectID, name, chatflowID string, filter models.GuestFilter) *models.Campaign {
	t.Helper()

	c := &models.Campaign{
		ProjectID:   projectID,
		Name:        name,
		ChatflowID:  chatflowID,
		GuestFilter: filter,
		Status:      models.CampaignStatusDraft,
	}
	require.NoError(t, h.Repos.Campaigns.Save(context.Background(), c))

	return c
}

// LinearFlow builds trigger -> send_template -> wait_reply -> end with the
// given template and wait configuration.
func LinearFlow(templateID string, waitConfig map[string]any) ([]*models.Node, []*models.Edge) {
	nodes := []*models.Node{
		{ID: "start", Type: models.NodeTypeTrigger},
		{ID: "invite", Type: models.NodeTypeSendTemplate, Config: map[string]any{"template_id": templateID}},
		{ID: "wait", Type: models.NodeTypeWaitReply, Config: waitConfig},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "start", Target: "invite"},
		{ID: "e2", Source: "invite", Target: "wait"},
		{ID: "e3", Source: "wait", Target: "finish"},
	}

	return nodes, edges
}
