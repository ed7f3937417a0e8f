/**
 * @description
 * Ingestion API handlers for the external batch jobs.
 * The market aggregation job pushes refreshed price indexes; the order
 * pipeline pushes supplier performance counters. Both routes carry the job
 * secret; the engines themselves never write through here.
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

type IngestHandler struct {
	Indexes   *services.MarketIndexStore
	Suppliers *services.SupplierPerformanceTracker
}

func NewIngestHandler(indexes *services.MarketIndexStore, suppliers *services.SupplierPerformanceTracker) *IngestHandler {
	return &IngestHandler{Indexes: indexes, Suppliers: suppliers}
}

// PutMarketIndex upserts one category's refreshed market statistics
// PUT /api/v1/internal/market-index (job secret)
func (h *IngestHandler) PutMarketIndex(c *fiber.Ctx) error {
	var index models.MarketPriceIndex
	if err := c.BodyParser(&index); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.Indexes.Ingest(c.Context(), &index); err != nil {
		return respondError(c, err)
	}
	return c.JSON(index)
}

// PutSupplierPerformance upserts one supplier's counters
// PUT /api/v1/internal/supplier-performance (job secret)
func (h *IngestHandler) PutSupplierPerformance(c *fiber.Ctx) error {
	var perf models.SupplierPerformance
	if err := c.BodyParser(&perf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.Suppliers.Ingest(c.Context(), &perf); err != nil {
		return respondError(c, err)
	}
	return c.JSON(perf)
}

// GetSupplierPerformance returns one supplier's counters
// GET /api/v1/suppliers/:id/performance (admin)
func (h *IngestHandler) GetSupplierPerformance(c *fiber.Ctx) error {
	perf, err := h.Suppliers.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(perf)
}

// ListSupplierPerformance returns supplier counters, filtered
// GET /api/v1/suppliers/performance (admin)
func (h *IngestHandler) ListSupplierPerformance(c *fiber.Ctx) error {
	filter := store.SupplierFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	perfs, err := h.Suppliers.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(perfs)
}
