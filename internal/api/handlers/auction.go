/**
 * @description
 * Lane auction API handlers.
 * Suppliers submit sealed bids; admins open, close, and audit auctions. Award
 * events stream to clients over SSE fed by Redis pub/sub.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 *
 * @notes
 * - Bid listings are an admin surface only: amounts stay sealed from other
 *   bidders while an auction is open.
 */

package handlers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/services"
	"github.com/procurelane/backend/internal/store"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	Service *services.AuctionService
}

func NewAuctionHandler(service *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{Service: service}
}

type createAuctionRequest struct {
	Category        string  `json:"category"`
	Country         string  `json:"country"`
	IntentThreshold float64 `json:"intent_threshold"`
	MaxSlots        int     `json:"max_slots"`
	DurationMinutes int     `json:"duration_minutes"`
}

// CreateAuction opens a lane auction
// POST /api/v1/auctions (admin)
func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	auction, err := h.Service.CreateAuction(c.Context(), services.CreateAuctionParams{
		Category:        req.Category,
		Country:         req.Country,
		IntentThreshold: req.IntentThreshold,
		MaxSlots:        req.MaxSlots,
		Duration:        time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(auction)
}

// ListAuctions returns auctions, optionally filtered by status and lane
// GET /api/v1/auctions
func (h *AuctionHandler) ListAuctions(c *fiber.Ctx) error {
	filter := store.AuctionFilter{
		Status:   models.AuctionStatus(c.Query("status")),
		Category: c.Query("category"),
		Country:  c.Query("country"),
		Limit:    c.QueryInt("limit", 100),
		Offset:   c.QueryInt("offset", 0),
	}
	auctions, err := h.Service.ListAuctions(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(auctions)
}

// GetAuction returns one auction
// GET /api/v1/auctions/:id
func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	auction, err := h.Service.Store.Auctions().Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(auction)
}

type submitBidRequest struct {
	SupplierID string          `json:"supplier_id"`
	BidAmount  decimal.Decimal `json:"bid_amount"`
	BidTier    string          `json:"bid_tier"`
}

// SubmitBid records or replaces a supplier's sealed bid
// POST /api/v1/auctions/:id/bids
func (h *AuctionHandler) SubmitBid(c *fiber.Ctx) error {
	var req submitBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	bid, err := h.Service.SubmitBid(c.Context(), c.Params("id"), req.SupplierID, req.BidAmount, req.BidTier)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bid)
}

// CloseAuction awards an auction now, regardless of its end time
// POST /api/v1/auctions/:id/close (admin)
func (h *AuctionHandler) CloseAuction(c *fiber.Ctx) error {
	winners, err := h.Service.CloseAuction(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"auction_id": c.Params("id"), "winners": winners})
}

// CancelAuction terminates an open auction without an award
// POST /api/v1/auctions/:id/cancel (admin)
func (h *AuctionHandler) CancelAuction(c *fiber.Ctx) error {
	if err := h.Service.CancelAuction(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"auction_id": c.Params("id"), "status": models.AuctionStatusClosed})
}

// ListBids returns an auction's ranked bids
// GET /api/v1/auctions/:id/bids (admin)
func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	bids, err := h.Service.ListBids(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bids)
}

// StreamEvents streams auction lifecycle events over SSE
// GET /api/v1/auctions/stream
func (h *AuctionHandler) StreamEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()

	ctx, cancel := context.WithCancel(context.Background())

	pubsub := h.Service.Redis.Subscribe(ctx, services.AuctionEventChannel)
	ch := pubsub.Channel()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cancel()
			_ = pubsub.Close()
		}()

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
