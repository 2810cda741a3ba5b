package web

import (
	"errors"

	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func writeProblem(c fiber.Ctx, status int, kind, detail string) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}

func badRequest(c fiber.Ctx, detail string) error {
	return writeProblem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return writeProblem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleMessageError maps store and lifecycle errors of a message request.
func handleMessageError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsMessageNotFound(err):
		return notFound(c, "Message not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return writeProblem(c, fiber.StatusConflict, "conflict", err.Error())
	default:
		return internalError(c, err)
	}
}
