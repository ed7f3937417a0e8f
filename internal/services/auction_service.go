/**
 * @description
 * Service layer for lane auction lifecycle.
 * Owns opening, sealed bid acceptance, and the idempotent close/award path.
 * Publishes auction events to Redis for the SSE stream.
 *
 * @dependencies
 * - backend/internal/engine: winner extraction
 * - backend/internal/store
 * - github.com/redis/go-redis/v9
 * - github.com/google/uuid
 *
 * @notes
 * - Per-auction writes are serialized by a row lock inside a transaction; the
 *   open→awarded transition happens exactly once. A bid racing a close either
 *   lands before it (and is counted) or fails with ConflictError.
 * - The scheduled sweep and manual close share CloseAuction, so there is a
 *   single close code path.
 */

package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/engine"
	"github.com/procurelane/backend/internal/logger"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// AuctionEventChannel carries bid/award events for the SSE stream
	AuctionEventChannel = "auctions:events"

	EventTypeBidSubmitted = "bid_submitted"
	EventTypeAwarded      = "awarded"
	EventTypeCancelled    = "cancelled"
)

// AuctionEvent is the payload published on AuctionEventChannel. Bid amounts
// are sealed and never part of an event.
type AuctionEvent struct {
	Type      string    `json:"type"`
	AuctionID string    `json:"auction_id"`
	Category  string    `json:"category"`
	Country   string    `json:"country"`
	Winners   []string  `json:"winners,omitempty"`
	At        time.Time `json:"at"`
}

// AuctionService owns the lane auction lifecycle
type AuctionService struct {
	Store store.Store
	Redis *redis.Client

	// Now is swappable for tests
	Now func() time.Time
}

// NewAuctionService wires the service
func NewAuctionService(st store.Store, rdb *redis.Client) *AuctionService {
	return &AuctionService{
		Store: st,
		Redis: rdb,
		Now:   time.Now,
	}
}

// CreateAuctionParams are the inputs to open a lane auction
type CreateAuctionParams struct {
	Category        string
	Country         string
	IntentThreshold float64
	MaxSlots        int
	Duration        time.Duration
}

func (p *CreateAuctionParams) validate() error {
	if strings.TrimSpace(p.Category) == "" {
		return apperrors.NewValidation("category", "must not be empty")
	}
	if strings.TrimSpace(p.Country) == "" {
		return apperrors.NewValidation("country", "must not be empty")
	}
	if p.Duration <= 0 {
		return apperrors.NewValidation("duration", "must be positive")
	}
	if p.MaxSlots <= 0 {
		return apperrors.NewValidation("max_slots", "must be positive")
	}
	return nil
}

// CreateAuction opens a lane auction by explicit admin action
func (s *AuctionService) CreateAuction(ctx context.Context, params CreateAuctionParams) (*models.LaneAuction, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	auction := &models.LaneAuction{
		ID:               uuid.NewString(),
		Category:         strings.TrimSpace(params.Category),
		Country:          strings.TrimSpace(params.Country),
		IntentThreshold:  params.IntentThreshold,
		Status:           models.AuctionStatusOpen,
		MaxSlots:         params.MaxSlots,
		StartAt:          now,
		EndAt:            now.Add(params.Duration),
		WinningSuppliers: models.StringArray{},
	}

	if err := s.Store.Auctions().Create(ctx, auction); err != nil {
		return nil, err
	}
	return auction, nil
}

// OpenAuctionForLane opens an auction from a demand signal, but only when the
// intent score crosses the lane threshold and the lane has no open auction
// yet (one open auction per lane, by policy).
func (s *AuctionService) OpenAuctionForLane(ctx context.Context, params CreateAuctionParams, intentScore float64) (*models.LaneAuction, bool, error) {
	if err := params.validate(); err != nil {
		return nil, false, err
	}
	if intentScore < params.IntentThreshold {
		return nil, false, nil
	}

	open, err := s.Store.Auctions().HasOpenForLane(ctx, params.Category, params.Country)
	if err != nil {
		return nil, false, err
	}
	if open {
		return nil, false, nil
	}

	auction, err := s.CreateAuction(ctx, params)
	if err != nil {
		return nil, false, err
	}
	return auction, true, nil
}

// SubmitBid records or replaces a supplier's sealed bid on an open auction.
// A supplier resubmitting updates their bid in place; the original created_at
// is preserved for tie-breaking.
func (s *AuctionService) SubmitBid(ctx context.Context, auctionID, supplierID string, amount decimal.Decimal, tier string) (*models.AuctionBid, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, apperrors.NewValidation("supplier_id", "must not be empty")
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidation("bid_amount", "must be positive")
	}

	bidRecord := &models.AuctionBid{
		ID:         uuid.NewString(),
		AuctionID:  auctionID,
		SupplierID: strings.TrimSpace(supplierID),
		BidAmount:  amount,
		BidTier:    tier,
		BidStatus:  models.BidStatusPending,
	}

	var auction *models.LaneAuction
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		auction, err = tx.Auctions().GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.Status != models.AuctionStatusOpen {
			return apperrors.NewConflict("auction %s is %s, bidding is closed", auctionID, auction.Status)
		}
		if auction.Expired(s.Now()) {
			return apperrors.NewConflict("auction %s ended at %s, bidding is closed", auctionID, auction.EndAt.Format(time.RFC3339))
		}
		return tx.Bids().Upsert(ctx, bidRecord)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, AuctionEvent{
		Type:      EventTypeBidSubmitted,
		AuctionID: auction.ID,
		Category:  auction.Category,
		Country:   auction.Country,
		At:        s.Now(),
	})

	return bidRecord, nil
}

// CloseAuction awards an auction: ranks all bids by amount (ties to the
// earliest bid), fills up to max_slots winner slots, marks the rest outbid.
// Idempotent: a second call returns the recorded winners without recomputing.
// Zero bids still transition the auction to awarded with an empty winner set.
func (s *AuctionService) CloseAuction(ctx context.Context, auctionID string) ([]string, error) {
	var winners []string
	var awarded bool
	var auction *models.LaneAuction

	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		auction, err = tx.Auctions().GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}

		if auction.Status.Terminal() {
			// Already awarded or cancelled: return the recorded outcome
			winners = auction.WinningSuppliers
			return nil
		}

		bids, err := tx.Bids().ListByAuction(ctx, auctionID)
		if err != nil {
			return err
		}

		award := engine.SelectWinners(bids, auction.MaxSlots)
		winners = award.WinnerSupplierIDs()

		acceptedIDs := make([]string, 0, len(award.Winners))
		for _, b := range award.Winners {
			acceptedIDs = append(acceptedIDs, b.ID)
		}
		outbidIDs := make([]string, 0, len(award.Outbid))
		for _, b := range award.Outbid {
			outbidIDs = append(outbidIDs, b.ID)
		}
		if err := tx.Bids().SetStatuses(ctx, auctionID, acceptedIDs, outbidIDs); err != nil {
			return err
		}

		auction.Status = models.AuctionStatusAwarded
		auction.WinningSuppliers = models.StringArray(winners)
		if err := tx.Auctions().Update(ctx, auction); err != nil {
			return err
		}

		awarded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if awarded {
		s.publish(ctx, AuctionEvent{
			Type:      EventTypeAwarded,
			AuctionID: auction.ID,
			Category:  auction.Category,
			Country:   auction.Country,
			Winners:   winners,
			At:        s.Now(),
		})
	}

	return winners, nil
}

// CancelAuction terminates an open auction without an award
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID string) error {
	var auction *models.LaneAuction
	var cancelled bool

	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		auction, err = tx.Auctions().GetForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.Status == models.AuctionStatusClosed {
			return nil // idempotent cancel
		}
		if auction.Status == models.AuctionStatusAwarded {
			return apperrors.NewConflict("auction %s is already awarded", auctionID)
		}

		auction.Status = models.AuctionStatusClosed
		if err := tx.Auctions().Update(ctx, auction); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return err
	}

	// Only the call that performed the transition announces it; a repeated
	// cancel must not emit a second terminal event.
	if cancelled {
		s.publish(ctx, AuctionEvent{
			Type:      EventTypeCancelled,
			AuctionID: auction.ID,
			Category:  auction.Category,
			Country:   auction.Country,
			At:        s.Now(),
		})
	}
	return nil
}

// ListBids returns an auction's bids ranked by amount descending, ties by
// earliest created_at. Admin/audit surface: bids stay sealed to suppliers.
func (s *AuctionService) ListBids(ctx context.Context, auctionID string) ([]models.AuctionBid, error) {
	if _, err := s.Store.Auctions().Get(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.Store.Bids().ListByAuction(ctx, auctionID)
}

// ListAuctions returns auctions matching the filter
func (s *AuctionService) ListAuctions(ctx context.Context, filter store.AuctionFilter) ([]models.LaneAuction, error) {
	return s.Store.Auctions().List(ctx, filter)
}

// SweepExpired closes every open auction whose bidding window has passed,
// through the same code path as a manual close. Returns the number closed.
func (s *AuctionService) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.Store.Auctions().ExpiredOpenIDs(ctx, s.Now())
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if _, err := s.CloseAuction(ctx, id); err != nil {
			logger.Error("sweep failed to close auction %s: %v", id, err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *AuctionService) publish(ctx context.Context, event AuctionEvent) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal auction event: %v", err)
		return
	}
	if err := s.Redis.Publish(ctx, AuctionEventChannel, payload).Err(); err != nil {
		logger.Error("failed to publish auction event: %v", err)
	}
}
