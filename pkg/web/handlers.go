package web

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/registry"
	"github.com/guestflow/guestflow/pkg/repository"
)

type APIHandlers struct {
	orchestrator *campaign.Orchestrator
	manager      *execution.Manager
	repos        *repository.Repositories
	registry     *registry.Registry
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *campaign.Orchestrator,
	manager *execution.Manager,
	repos *repository.Repositories,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		manager:      manager,
		repos:        repos,
		registry:     reg,
		validator:    validate,
	}
}

// RegisterRoutes mounts the project-scoped API.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	project := app.Group("/projects/:projectID")

	campaigns := project.Group("/campaigns")
	campaigns.Post("/", h.CreateCampaign)
	campaigns.Get("/", h.ListCampaigns)
	campaigns.Get("/:id", h.GetCampaign)
	campaigns.Post("/:id/start", h.StartCampaign)
	campaigns.Post("/:id/pause", h.PauseCampaign)
	campaigns.Post("/:id/resume", h.ResumeCampaign)
	campaigns.Post("/:id/cancel", h.CancelCampaign)
	campaigns.Get("/:id/stats", h.CampaignStats)
	campaigns.Get("/:id/executions", h.ListCampaignExecutions)
	campaigns.Get("/:id/messages", h.ListCampaignMessages)

	executions := project.Group("/executions")
	executions.Get("/:id", h.GetExecution)
	executions.Post("/retry", h.BulkRetry)
	executions.Post("/pause", h.BulkPause)
	executions.Post("/resume", h.BulkResume)
	executions.Post("/cancel", h.BulkCancel)

	chatflows := project.Group("/chatflows")
	chatflows.Post("/", h.CreateChatflow)
	chatflows.Get("/", h.ListChatflows)
	chatflows.Get("/:id", h.GetChatflow)
	chatflows.Post("/:id/publish", h.PublishChatflow)

	guests := project.Group("/guests")
	guests.Post("/", h.CreateGuest)
	guests.Get("/", h.ListGuests)
	guests.Get("/:id", h.GetGuest)

	templates := project.Group("/templates")
	templates.Post("/", h.CreateTemplate)
	templates.Get("/:id", h.GetTemplate)

	// Inbound webhooks from the messaging transport.
	project.Post("/replies", h.InboundReply)
	project.Post("/forms", h.InboundFormAnswers)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	projectID := c.Params("projectID")

	if _, err := h.repos.Chatflows.GetByID(c.Context(), projectID, req.ChatflowID); err != nil {
		return handleDomainError(c, err)
	}

	camp := &models.Campaign{
		ProjectID:   projectID,
		Name:        req.Name,
		ChatflowID:  req.ChatflowID,
		GuestFilter: req.GuestFilter,
	}

	if err := h.orchestrator.Create(c.Context(), camp); err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(camp)
}

func (h *APIHandlers) ListCampaigns(c fiber.Ctx) error {
	campaigns, err := h.orchestrator.List(c.Context(), c.Params("projectID"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"campaigns": campaigns, "total_count": len(campaigns)})
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	camp, err := h.orchestrator.Get(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(camp)
}

func (h *APIHandlers) StartCampaign(c fiber.Ctx) error {
	if err := h.orchestrator.Start(c.Context(), c.Params("projectID"), c.Params("id")); err != nil {
		return handleDomainError(c, err)
	}

	return h.GetCampaign(c)
}

func (h *APIHandlers) PauseCampaign(c fiber.Ctx) error {
	if err := h.orchestrator.Pause(c.Context(), c.Params("projectID"), c.Params("id")); err != nil {
		return handleDomainError(c, err)
	}

	return h.GetCampaign(c)
}

func (h *APIHandlers) ResumeCampaign(c fiber.Ctx) error {
	if err := h.orchestrator.Resume(c.Context(), c.Params("projectID"), c.Params("id")); err != nil {
		return handleDomainError(c, err)
	}

	return h.GetCampaign(c)
}

func (h *APIHandlers) CancelCampaign(c fiber.Ctx) error {
	if err := h.orchestrator.Cancel(c.Context(), c.Params("projectID"), c.Params("id")); err != nil {
		return handleDomainError(c, err)
	}

	return h.GetCampaign(c)
}

func (h *APIHandlers) CampaignStats(c fiber.Ctx) error {
	stats, err := h.orchestrator.Stats(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) ListCampaignExecutions(c fiber.Ctx) error {
	projectID := c.Params("projectID")
	campaignID := c.Params("id")

	if _, err := h.orchestrator.Get(c.Context(), projectID, campaignID); err != nil {
		return handleDomainError(c, err)
	}

	executions, err := h.manager.ListByCampaign(c.Context(), projectID, campaignID)
	if err != nil {
		return handleDomainError(c, err)
	}

	// Optional status filter.
	if status := c.Query("status"); status != "" {
		filtered := executions[:0]

		for _, exec := range executions {
			if exec.Status == models.ExecutionStatus(status) {
				filtered = append(filtered, exec)
			}
		}

		executions = filtered
	}

	return c.JSON(fiber.Map{"executions": executions, "total_count": len(executions)})
}

func (h *APIHandlers) ListCampaignMessages(c fiber.Ctx) error {
	projectID := c.Params("projectID")
	campaignID := c.Params("id")

	if _, err := h.orchestrator.Get(c.Context(), projectID, campaignID); err != nil {
		return handleDomainError(c, err)
	}

	messages, err := h.repos.Messages.ListByCampaign(c.Context(), projectID, campaignID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages, "total_count": len(messages)})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	exec, err := h.manager.Get(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(exec)
}

func (h *APIHandlers) BulkRetry(c fiber.Ctx) error {
	return h.bulkAction(c, h.manager.Retry)
}

func (h *APIHandlers) BulkPause(c fiber.Ctx) error {
	return h.bulkAction(c, h.manager.Pause)
}

func (h *APIHandlers) BulkResume(c fiber.Ctx) error {
	return h.bulkAction(c, h.manager.ResumePaused)
}

func (h *APIHandlers) BulkCancel(c fiber.Ctx) error {
	return h.bulkAction(c, h.manager.Cancel)
}

type bulkFn func(ctx context.Context, projectID string, ids []string) execution.BulkResult

// bulkAction applies a lifecycle action to each requested execution and
// reports per-id outcomes; one bad id never fails the batch.
func (h *APIHandlers) bulkAction(c fiber.Ctx, action bulkFn) error {
	var req BulkActionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result := action(c.Context(), c.Params("projectID"), req.ExecutionIDs)

	return c.JSON(result)
}

func (h *APIHandlers) CreateChatflow(c fiber.Ctx) error {
	var req CreateChatflowRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Chatflow{
		ProjectID: c.Params("projectID"),
		Name:      req.Name,
		Status:    models.ChatflowStatusDraft,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
	}

	if err := h.repos.Chatflows.Save(c.Context(), flow); err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

func (h *APIHandlers) ListChatflows(c fiber.Ctx) error {
	flows, err := h.repos.Chatflows.ListByProject(c.Context(), c.Params("projectID"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"chatflows": flows, "total_count": len(flows)})
}

func (h *APIHandlers) GetChatflow(c fiber.Ctx) error {
	flow, err := h.repos.Chatflows.GetByID(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(flow)
}

// PublishChatflow validates the graph and flips it to published. Authoring
// errors (no trigger, ambiguous edges, bad node config) come back as 400s.
func (h *APIHandlers) PublishChatflow(c fiber.Ctx) error {
	flow, err := h.repos.Chatflows.GetByID(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.registry.ValidateChatflow(flow); err != nil {
		return badRequest(c, err.Error())
	}

	flow.Status = models.ChatflowStatusPublished

	if err := h.repos.Chatflows.Save(c.Context(), flow); err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateGuest(c fiber.Ctx) error {
	var req CreateGuestRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	guest := &models.Guest{
		ProjectID:      c.Params("projectID"),
		Name:           req.Name,
		Phone:          req.Phone,
		Category:       req.Category,
		InvitationType: req.InvitationType,
		Tags:           req.Tags,
		HasPlusOne:     req.HasPlusOne,
	}

	if err := h.repos.Guests.Save(c.Context(), guest); err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(guest)
}

func (h *APIHandlers) ListGuests(c fiber.Ctx) error {
	guests, err := h.repos.Guests.ListByProject(c.Context(), c.Params("projectID"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"guests": guests, "total_count": len(guests)})
}

func (h *APIHandlers) GetGuest(c fiber.Ctx) error {
	guest, err := h.repos.Guests.GetByID(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(guest)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tpl := &models.MessageTemplate{
		ProjectID: c.Params("projectID"),
		Name:      req.Name,
		Content:   req.Content,
	}

	if err := h.repos.Templates.Save(c.Context(), tpl); err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	tpl, err := h.repos.Templates.GetByID(c.Context(), c.Params("projectID"), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(tpl)
}

// InboundReply is the webhook the messaging transport calls when a guest
// sends a message.
func (h *APIHandlers) InboundReply(c fiber.Ctx) error {
	var req InboundReplyRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.manager.HandleReply(c.Context(), c.Params("projectID"), req.GuestID, req.Message); err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"status": "accepted"})
}

// InboundFormAnswers is the webhook delivering a guest's structured form
// answers.
func (h *APIHandlers) InboundFormAnswers(c fiber.Ctx) error {
	var req FormAnswersRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.manager.HandleFormAnswers(c.Context(), c.Params("projectID"), req.GuestID, req.Answers); err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{"status": "accepted"})
}
