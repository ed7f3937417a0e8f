/**
 * @description
 * Price confidence explainability record.
 * Maps to the 'price_confidence_scores' table in PostgreSQL.
 * One row per finalized selection; the buyer only ever sees the label and
 * message, the full breakdown stays with admin/audit callers.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/shopspring/decimal
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfidenceLabel is the buyer-facing bucket of a confidence score
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "HIGH"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceLow    ConfidenceLabel = "LOW"
)

// PriceConfidenceScore holds one finalized price explanation
type PriceConfidenceScore struct {
	ID                string          `gorm:"type:uuid;primaryKey" json:"id"`
	RequirementID     string          `gorm:"column:requirement_id;not null;index:idx_confidence_requirement" json:"requirement_id"`
	BidID             string          `gorm:"column:bid_id" json:"bid_id,omitempty"`
	BuyerVisiblePrice decimal.Decimal `gorm:"column:buyer_visible_price;type:numeric(18,4)" json:"buyer_visible_price"`
	ConfidenceScore   int             `gorm:"column:confidence_score;not null" json:"confidence_score"` // in [0,100]
	ConfidenceLabel   ConfidenceLabel `gorm:"column:confidence_label;type:varchar(8);not null" json:"confidence_label"`

	// Internal breakdown, admin/audit only. The three signals are in [0,1];
	// price position reads lower-is-better.
	PricePosition    float64 `gorm:"column:price_position" json:"price_position"`
	MarketStability  float64 `gorm:"column:market_stability" json:"market_stability"`
	CompetitionScore float64 `gorm:"column:competition_score" json:"competition_score"`
	PriceSpreadRatio float64 `gorm:"column:price_spread_ratio" json:"price_spread_ratio"`

	SelectionMode           SelectionMode `gorm:"column:selection_mode;type:varchar(16)" json:"selection_mode"`
	TotalBids               *int          `gorm:"column:total_bids" json:"total_bids,omitempty"`
	HistoricalPriceVariance *float64      `gorm:"column:historical_price_variance" json:"historical_price_variance,omitempty"`

	BuyerMessage string `gorm:"column:buyer_message" json:"buyer_message"`

	// Degraded marks a score computed with missing or stale market data
	Degraded bool `gorm:"column:degraded;default:false" json:"degraded"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by PriceConfidenceScore to `price_confidence_scores`
func (PriceConfidenceScore) TableName() string {
	return "price_confidence_scores"
}
