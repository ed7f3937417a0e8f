/**
 * @description
 * Supplier historical performance counters.
 * Maps to the 'supplier_performances' table in PostgreSQL.
 * Counters are append-only, bumped by external order-outcome events; the
 * engines read derived metrics only.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// Neutral defaults used when a supplier has no performance history on file.
// Callers that fall back to these flag the result as low-confidence data.
const (
	NeutralDeliveryProbability = 0.85
	NeutralQualityRisk         = 0.3
)

// SupplierPerformance holds per-supplier delivery and quality counters
type SupplierPerformance struct {
	SupplierID           string   `gorm:"column:supplier_id;primaryKey" json:"supplier_id"`
	TotalOrders          int      `gorm:"column:total_orders;default:0" json:"total_orders"`
	SuccessfulDeliveries int      `gorm:"column:successful_deliveries;default:0" json:"successful_deliveries"`
	OnTimeDeliveries     int      `gorm:"column:on_time_deliveries;default:0" json:"on_time_deliveries"`
	LateDeliveries       int      `gorm:"column:late_deliveries;default:0" json:"late_deliveries"`
	QualityRejections    int      `gorm:"column:quality_rejections;default:0" json:"quality_rejections"`
	QualityComplaints    int      `gorm:"column:quality_complaints;default:0" json:"quality_complaints"`
	QualityRiskScore     float64  `gorm:"column:quality_risk_score;default:0" json:"quality_risk_score"` // in [0,1]
	AvgDeliveryDays      *float64 `gorm:"column:avg_delivery_days" json:"avg_delivery_days,omitempty"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by SupplierPerformance to `supplier_performances`
func (SupplierPerformance) TableName() string {
	return "supplier_performances"
}

// DeliverySuccessProbability derives the delivery reliability in [0,1].
// Neutral when the supplier has no order history yet.
func (p *SupplierPerformance) DeliverySuccessProbability() float64 {
	if p.TotalOrders <= 0 {
		return NeutralDeliveryProbability
	}
	return float64(p.SuccessfulDeliveries) / float64(p.TotalOrders)
}

// RecomputeQualityRisk recalculates the quality risk score from the counters.
// Rejections weigh double complaints; the score is capped at 1.
func (p *SupplierPerformance) RecomputeQualityRisk() {
	if p.TotalOrders <= 0 {
		p.QualityRiskScore = NeutralQualityRisk
		return
	}
	risk := (2*float64(p.QualityRejections) + float64(p.QualityComplaints)) / (2 * float64(p.TotalOrders))
	if risk > 1 {
		risk = 1
	}
	p.QualityRiskScore = risk
}
