/**
 * @description
 * GORM repositories for market price indexes and supplier performance.
 * Both tables are written only by the external aggregation jobs (through the
 * ingestion endpoints); the engines read snapshots.
 *
 * @dependencies
 * - gorm.io/gorm
 * - gorm.io/gorm/clause: upserts keyed on the natural primary key
 */

package postgres

import (
	"context"
	"errors"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type marketIndexRepo struct {
	db *gorm.DB
}

func (r *marketIndexRepo) Get(ctx context.Context, category string) (*models.MarketPriceIndex, error) {
	var index models.MarketPriceIndex
	err := r.db.WithContext(ctx).First(&index, "product_category = ?", category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("market index", category)
	}
	if err != nil {
		return nil, err
	}
	return &index, nil
}

func (r *marketIndexRepo) Upsert(ctx context.Context, index *models.MarketPriceIndex) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_market_price",
			"max_market_price",
			"average_market_price",
			"price_std_deviation",
			"demand_index",
			"supply_index",
			"volatility_index",
			"last_updated",
		}),
	}).Create(index).Error
}

type supplierRepo struct {
	db *gorm.DB
}

func (r *supplierRepo) Get(ctx context.Context, supplierID string) (*models.SupplierPerformance, error) {
	var perf models.SupplierPerformance
	err := r.db.WithContext(ctx).First(&perf, "supplier_id = ?", supplierID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("supplier performance", supplierID)
	}
	if err != nil {
		return nil, err
	}
	return &perf, nil
}

func (r *supplierRepo) List(ctx context.Context, filter store.SupplierFilter) ([]models.SupplierPerformance, error) {
	query := r.db.WithContext(ctx).Model(&models.SupplierPerformance{})

	if len(filter.SupplierIDs) > 0 {
		query = query.Where("supplier_id IN ?", filter.SupplierIDs)
	}

	query = query.Order("supplier_id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var perfs []models.SupplierPerformance
	if err := query.Find(&perfs).Error; err != nil {
		return nil, err
	}
	return perfs, nil
}

func (r *supplierRepo) Upsert(ctx context.Context, perf *models.SupplierPerformance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "supplier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_orders",
			"successful_deliveries",
			"on_time_deliveries",
			"late_deliveries",
			"quality_rejections",
			"quality_complaints",
			"quality_risk_score",
			"avg_delivery_days",
			"updated_at",
		}),
	}).Create(perf).Error
}
