/**
 * @description
 * Lane auction and sealed bid database models.
 * Maps to the 'lane_auctions' and 'auction_bids' tables in PostgreSQL.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal
 *
 * @notes
 * - A lane is a (category, country) pair of buyer demand.
 * - Bid amounts are sealed: never exposed to other bidders while the auction is open.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus defines the lifecycle state of a lane auction
type AuctionStatus string

const (
	AuctionStatusOpen    AuctionStatus = "OPEN"
	AuctionStatusAwarded AuctionStatus = "AWARDED"
	AuctionStatusClosed  AuctionStatus = "CLOSED" // manual cancel, no award
)

// Terminal reports whether no further transitions may leave this status
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusAwarded || s == AuctionStatusClosed
}

// BidStatus defines the state of a sealed bid
type BidStatus string

const (
	BidStatusPending  BidStatus = "PENDING"
	BidStatusAccepted BidStatus = "ACCEPTED"
	BidStatusOutbid   BidStatus = "OUTBID"
)

// LaneAuction represents a competitive auction on one demand lane
type LaneAuction struct {
	ID               string        `gorm:"type:uuid;primaryKey" json:"id"`
	Category         string        `gorm:"column:category;not null;index:idx_auctions_lane" json:"category"`
	Country          string        `gorm:"column:country;not null;index:idx_auctions_lane" json:"country"`
	IntentThreshold  float64       `gorm:"column:intent_threshold" json:"intent_threshold"`
	Status           AuctionStatus `gorm:"column:status;type:varchar(16);default:'OPEN';index:idx_auctions_status" json:"status"`
	MaxSlots         int           `gorm:"column:max_slots;not null" json:"max_slots"`
	StartAt          time.Time     `gorm:"column:start_at;not null" json:"start_at"`
	EndAt            time.Time     `gorm:"column:end_at;not null;index" json:"end_at"`
	WinningSuppliers StringArray   `gorm:"column:winning_suppliers;type:text[]" json:"winning_suppliers"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by LaneAuction to `lane_auctions`
func (LaneAuction) TableName() string {
	return "lane_auctions"
}

// Expired reports whether the bidding window has passed
func (a *LaneAuction) Expired(now time.Time) bool {
	return now.After(a.EndAt)
}

// AuctionBid represents one supplier's live sealed bid on an auction.
// The (auction_id, supplier_id) unique index is the natural key: a supplier
// resubmitting updates their bid in place, it is never duplicated.
type AuctionBid struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	AuctionID  string          `gorm:"column:auction_id;type:uuid;not null;uniqueIndex:idx_bids_auction_supplier" json:"auction_id"`
	SupplierID string          `gorm:"column:supplier_id;not null;uniqueIndex:idx_bids_auction_supplier" json:"supplier_id"`
	BidAmount  decimal.Decimal `gorm:"column:bid_amount;type:numeric(18,4);not null" json:"bid_amount"`
	BidTier    string          `gorm:"column:bid_tier;type:varchar(32)" json:"bid_tier"`
	BidStatus  BidStatus       `gorm:"column:bid_status;type:varchar(16);default:'PENDING'" json:"bid_status"`

	// CreatedAt is used for tie-breaking and is preserved on resubmission so
	// updating a bid does not improve its tie-break position. The column is
	// DB-assigned (default now(), app-side auto-stamp disabled) so tied bids
	// from different API instances order by one clock, not by skewed
	// instance clocks.
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by AuctionBid to `auction_bids`
func (AuctionBid) TableName() string {
	return "auction_bids"
}
