package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/guestflow/guestflow/pkg/campaign"
	"github.com/guestflow/guestflow/pkg/execution"
	"github.com/guestflow/guestflow/pkg/persistence"
	"github.com/guestflow/guestflow/pkg/session"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func unprocessable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(422).
		WithInstance(c.Path()).
		WithType("invalid_state_transition").
		WithDetail(detail)

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleDomainError maps engine errors onto problem responses.
func handleDomainError(c fiber.Ctx, err error) error {
	var busy *session.BusyError

	switch {
	case persistence.IsNotFound(err):
		return notFound(c, err.Error())
	case errors.Is(err, campaign.ErrEmptyAudience):
		return unprocessable(c, err.Error())
	case errors.Is(err, campaign.ErrInvalidTransition), errors.Is(err, execution.ErrInvalidTransition):
		return unprocessable(c, err.Error())
	case errors.As(err, &busy):
		return conflict(c, err.Error())
	default:
		return internalError(c, err)
	}
}
