/**
 * @description
 * Selection run audit record.
 * Maps to the 'selection_logs' table in PostgreSQL. One row per completed
 * selection run; never mutated afterwards (re-selection appends a new run).
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

// SelectionMode defines how a supplier was chosen for a requirement
type SelectionMode string

const (
	SelectionModeBidding    SelectionMode = "BIDDING"
	SelectionModeAutoAssign SelectionMode = "AUTO_ASSIGN"
)

// SelectionLog records the outcome of one selection run for a requirement
type SelectionLog struct {
	ID                 string          `gorm:"type:uuid;primaryKey" json:"id"`
	RequirementID      string          `gorm:"column:requirement_id;not null;index:idx_selection_requirement" json:"requirement_id"`
	SelectionMode      SelectionMode   `gorm:"column:selection_mode;type:varchar(16);not null" json:"selection_mode"`
	Category           string          `gorm:"column:category;index" json:"category"`
	SelectedSupplierID string          `gorm:"column:selected_supplier_id;not null" json:"selected_supplier_id"`
	MaterialCost       decimal.Decimal `gorm:"column:material_cost;type:numeric(18,4)" json:"material_cost"`
	LogisticsCost      decimal.Decimal `gorm:"column:logistics_cost;type:numeric(18,4)" json:"logistics_cost"`
	TotalLandedCost    decimal.Decimal `gorm:"column:total_landed_cost;type:numeric(18,4)" json:"total_landed_cost"`

	DeliverySuccessProbability float64 `gorm:"column:delivery_success_probability" json:"delivery_success_probability"`
	QualityRiskScore           float64 `gorm:"column:quality_risk_score" json:"quality_risk_score"`

	FallbackTriggered bool        `gorm:"column:fallback_triggered;default:false" json:"fallback_triggered"`
	FallbackReason    string      `gorm:"column:fallback_reason" json:"fallback_reason,omitempty"`
	RunnerUpSuppliers StringArray `gorm:"column:runner_up_suppliers;type:text[]" json:"runner_up_suppliers"`

	// DataConfidenceLow is set when neutral defaults stood in for a missing
	// supplier performance record.
	DataConfidenceLow bool `gorm:"column:data_confidence_low;default:false" json:"data_confidence_low"`

	// Unpersisted is never stored true; it is set on the in-memory copy
	// returned to the caller when the post-decision write failed twice, so the
	// caller can retry the write.
	Unpersisted bool `gorm:"-" json:"unpersisted,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by SelectionLog to `selection_logs`
func (SelectionLog) TableName() string {
	return "selection_logs"
}
