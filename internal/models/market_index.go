/**
 * @description
 * Per-category rolling market price statistics.
 * Maps to the 'market_price_indexes' table in PostgreSQL.
 * One row per product category, refreshed by an external aggregation job;
 * the engines only ever read snapshots.
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

// MarketPriceIndex holds rolling price statistics for one product category
type MarketPriceIndex struct {
	ProductCategory    string          `gorm:"column:product_category;primaryKey" json:"product_category"`
	MinMarketPrice     decimal.Decimal `gorm:"column:min_market_price;type:numeric(18,4)" json:"min_market_price"`
	MaxMarketPrice     decimal.Decimal `gorm:"column:max_market_price;type:numeric(18,4)" json:"max_market_price"`
	AverageMarketPrice decimal.Decimal `gorm:"column:average_market_price;type:numeric(18,4)" json:"average_market_price"`
	PriceStdDeviation  float64         `gorm:"column:price_std_deviation" json:"price_std_deviation"`
	DemandIndex        float64         `gorm:"column:demand_index" json:"demand_index"`
	SupplyIndex        float64         `gorm:"column:supply_index" json:"supply_index"`
	VolatilityIndex    float64         `gorm:"column:volatility_index" json:"volatility_index"` // in [0,1]
	LastUpdated        time.Time       `gorm:"column:last_updated" json:"last_updated"`
}

// TableName overrides the table name used by MarketPriceIndex to `market_price_indexes`
func (MarketPriceIndex) TableName() string {
	return "market_price_indexes"
}

// Stale reports whether the snapshot is older than the freshness window
func (m *MarketPriceIndex) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(m.LastUpdated) > window
}
