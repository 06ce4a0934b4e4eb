package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals("requestID").(string); ok {
		return value
	}
	return ""
}

// serviceError maps the service-layer taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		return utils.Error(c, fiber.StatusConflict, "conflict")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "internal error")
	}
}
