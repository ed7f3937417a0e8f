/**
 * @description
 * Supplier selection API handlers.
 * Selection runs are triggered by internal callers (admin); the resulting
 * logs are an audit surface.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/services"
	"github.com/procurelane/backend/internal/store"
)

type SelectionHandler struct {
	Service *services.SelectionService
}

func NewSelectionHandler(service *services.SelectionService) *SelectionHandler {
	return &SelectionHandler{Service: service}
}

type runSelectionRequest struct {
	RequirementID string               `json:"requirement_id"`
	SelectionMode models.SelectionMode `json:"selection_mode"`
}

// RunSelection executes a selection run for a requirement
// POST /api/v1/selections (admin)
func (h *SelectionHandler) RunSelection(c *fiber.Ctx) error {
	var req runSelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	logRecord, err := h.Service.RunSelection(c.Context(), req.RequirementID, req.SelectionMode)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusCreated
	if logRecord.Unpersisted {
		// Decision made but not yet durable: the caller should re-run
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(logRecord)
}

// GetLatest returns the most recent selection run for a requirement
// GET /api/v1/requirements/:id/selection (admin)
func (h *SelectionHandler) GetLatest(c *fiber.Ctx) error {
	logRecord, err := h.Service.Store.Selections().LatestByRequirement(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logRecord)
}

// ListSelections returns selection logs, filtered
// GET /api/v1/selections (admin)
func (h *SelectionHandler) ListSelections(c *fiber.Ctx) error {
	filter := store.SelectionFilter{
		RequirementID: c.Query("requirement_id"),
		Category:      c.Query("category"),
		Mode:          models.SelectionMode(c.Query("mode")),
		Limit:         c.QueryInt("limit", 100),
		Offset:        c.QueryInt("offset", 0),
	}
	logs, err := h.Service.Store.Selections().List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}
