// Package main provides the Guestflow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/cmd"
	"github.com/guestflow/guestflow/pkg/delivery"
	"github.com/guestflow/guestflow/pkg/eventbus"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/executor"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/repository"
	"github.com/guestflow/guestflow/pkg/scheduler"
	"github.com/guestflow/guestflow/pkg/session"
	"github.com/guestflow/guestflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Store
	eventBus eventbus.EventBus
	validate *validator.Validate

	scheduler *scheduler.Scheduler
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Store,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	repos := repository.New(a.store)
	dispatcher := delivery.NewSimulator(repos.Messages, a.logger)
	reg := cmd.NewRegistry(a.logger, repos, dispatcher)
	tracker := session.NewTracker(repos.Sessions, repos.Invitations, a.logger)
	sched := scheduler.NewScheduler(a.logger)
	exec := executor.NewExecutor(repos.Executions, reg, tracker, sched, a.eventBus, a.logger)
	manager := execution.NewManager(repos, exec, tracker, a.eventBus, a.logger)
	orchestrator := campaign.NewOrchestrator(repos, manager, tracker, a.eventBus, a.logger)

	// Delay and reply-timeout entries scheduled while serving a webhook
	// must fire in this process.
	sched.Bind(manager)
	a.scheduler = sched

	handlers := web.NewAPIHandlers(orchestrator, manager, repos, reg, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Guestflow API")
	})

	app.Get("/health", func(c fiber.Ctx) error {
		if err := a.store.HealthCheck(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}

		return c.JSON(fiber.Map{"status": "healthy"})
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go a.scheduler.Start(ctx)

	return app.Listen(":" + strconv.Itoa(port))
}
