/**
 * @description
 * Typed repository interfaces, one per entity.
 * Storage technology stays an implementation detail behind these ports; the
 * GORM adapters live in store/postgres, tests use in-memory fakes.
 *
 * @dependencies
 * - backend/internal/models
 */

package store

import (
	"context"
	"time"

	"github.com/procurelane/backend/internal/models"
)

// Store bundles the per-entity repositories plus transaction and lock support
type Store interface {
	Auctions() AuctionRepo
	Bids() BidRepo
	Selections() SelectionRepo
	MarketIndexes() MarketIndexRepo
	Suppliers() SupplierPerformanceRepo
	Confidences() ConfidenceRepo

	// Tx runs fn atomically. Repositories obtained from the Store passed to fn
	// operate inside the transaction; any error rolls everything back.
	Tx(ctx context.Context, fn func(Store) error) error

	// WithRequirementLock serializes selection runs per requirement. The lock
	// is exclusive and scoped to the requirement id, never global.
	WithRequirementLock(ctx context.Context, requirementID string, fn func() error) error
}

// AuctionFilter narrows ListAuctions
type AuctionFilter struct {
	Status   models.AuctionStatus
	Category string
	Country  string
	Limit    int
	Offset   int
}

// AuctionRepo persists lane auctions
type AuctionRepo interface {
	Create(ctx context.Context, auction *models.LaneAuction) error
	Get(ctx context.Context, id string) (*models.LaneAuction, error)
	// GetForUpdate locks the auction row for the duration of the enclosing
	// transaction. Only meaningful inside Tx.
	GetForUpdate(ctx context.Context, id string) (*models.LaneAuction, error)
	Update(ctx context.Context, auction *models.LaneAuction) error
	List(ctx context.Context, filter AuctionFilter) ([]models.LaneAuction, error)
	// ExpiredOpenIDs lists open auctions whose bidding window has passed
	ExpiredOpenIDs(ctx context.Context, now time.Time) ([]string, error)
	// HasOpenForLane reports whether the lane already has an open auction
	HasOpenForLane(ctx context.Context, category, country string) (bool, error)
}

// BidRepo persists sealed bids
type BidRepo interface {
	// Upsert inserts the bid or, when the (auction, supplier) pair already has
	// a live bid, updates amount and tier in place preserving created_at.
	Upsert(ctx context.Context, bidRecord *models.AuctionBid) error
	ListByAuction(ctx context.Context, auctionID string) ([]models.AuctionBid, error)
	// SetStatuses marks the given bid ids accepted respectively outbid
	SetStatuses(ctx context.Context, auctionID string, accepted, outbid []string) error
}

// SelectionFilter narrows selection log queries
type SelectionFilter struct {
	RequirementID string
	Category      string
	Mode          models.SelectionMode
	Limit         int
	Offset        int
}

// SelectionRepo persists selection run records
type SelectionRepo interface {
	Create(ctx context.Context, logRecord *models.SelectionLog) error
	// LatestByRequirement returns the most recent run for the requirement, or
	// a NotFoundError when no run exists yet
	LatestByRequirement(ctx context.Context, requirementID string) (*models.SelectionLog, error)
	List(ctx context.Context, filter SelectionFilter) ([]models.SelectionLog, error)
	// CategoryStats aggregates past runs in a category for Mode B signals:
	// landed costs of recent runs plus per-supplier selection counts.
	CategoryStats(ctx context.Context, category string, limit int) (*CategoryStats, error)
}

// CategoryStats summarizes recent selection history in one category
type CategoryStats struct {
	Runs            int
	LandedCosts     []float64
	SelectionCounts map[string]int // supplier id → times selected
}

// MarketIndexRepo persists per-category market statistics
type MarketIndexRepo interface {
	Get(ctx context.Context, category string) (*models.MarketPriceIndex, error)
	Upsert(ctx context.Context, index *models.MarketPriceIndex) error
}

// SupplierFilter narrows supplier performance queries
type SupplierFilter struct {
	SupplierIDs []string
	Limit       int
	Offset      int
}

// SupplierPerformanceRepo persists supplier performance counters
type SupplierPerformanceRepo interface {
	Get(ctx context.Context, supplierID string) (*models.SupplierPerformance, error)
	List(ctx context.Context, filter SupplierFilter) ([]models.SupplierPerformance, error)
	Upsert(ctx context.Context, perf *models.SupplierPerformance) error
}

// ConfidenceRepo persists price confidence records
type ConfidenceRepo interface {
	Create(ctx context.Context, score *models.PriceConfidenceScore) error
	// LatestByRequirement returns the most recent score for the requirement
	LatestByRequirement(ctx context.Context, requirementID string) (*models.PriceConfidenceScore, error)
}
