/**
 * @description
 * Domain error to HTTP status mapping shared by all handlers.
 *
 * @notes
 * - Validation → 400, NotFound → 404, Conflict → 409,
 *   NoEligibleSupplier → 422. Anything else is a 500 with a generic body so
 *   internals never leak to callers.
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/logger"
)

// respondError translates a service error into the JSON error response
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case apperrors.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case apperrors.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case apperrors.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case apperrors.IsNoEligibleSupplier(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		logger.Error("internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
