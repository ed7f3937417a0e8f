/**
 * @description
 * Price confidence API handlers.
 * Buyers get the public view only; the full breakdown requires admin access.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/services"
)

type ConfidenceHandler struct {
	Service *services.ConfidenceService
}

func NewConfidenceHandler(service *services.ConfidenceService) *ConfidenceHandler {
	return &ConfidenceHandler{Service: service}
}

// GetConfidence returns the buyer-facing confidence view for a requirement
// GET /api/v1/requirements/:id/confidence
func (h *ConfidenceHandler) GetConfidence(c *fiber.Ctx) error {
	view, err := h.Service.Latest(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// GetBreakdown returns the full internal confidence record
// GET /api/v1/requirements/:id/confidence/breakdown (admin)
func (h *ConfidenceHandler) GetBreakdown(c *fiber.Ctx) error {
	record, err := h.Service.Breakdown(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(record)
}
