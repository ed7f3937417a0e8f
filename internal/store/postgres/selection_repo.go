/**
 * @description
 * GORM repositories for selection logs and price confidence records.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package postgres

import (
	"context"
	"errors"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"gorm.io/gorm"
)

type selectionRepo struct {
	db *gorm.DB
}

func (r *selectionRepo) Create(ctx context.Context, logRecord *models.SelectionLog) error {
	return r.db.WithContext(ctx).Create(logRecord).Error
}

func (r *selectionRepo) LatestByRequirement(ctx context.Context, requirementID string) (*models.SelectionLog, error) {
	var logRecord models.SelectionLog
	err := r.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Order("created_at DESC").
		First(&logRecord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("selection log", requirementID)
	}
	if err != nil {
		return nil, err
	}
	return &logRecord, nil
}

func (r *selectionRepo) List(ctx context.Context, filter store.SelectionFilter) ([]models.SelectionLog, error) {
	query := r.db.WithContext(ctx).Model(&models.SelectionLog{})

	if filter.RequirementID != "" {
		query = query.Where("requirement_id = ?", filter.RequirementID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Mode != "" {
		query = query.Where("selection_mode = ?", filter.Mode)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var logs []models.SelectionLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *selectionRepo) CategoryStats(ctx context.Context, category string, limit int) (*store.CategoryStats, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.SelectionLog
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	stats := &store.CategoryStats{
		Runs:            len(logs),
		LandedCosts:     make([]float64, 0, len(logs)),
		SelectionCounts: make(map[string]int),
	}
	for _, l := range logs {
		cost, _ := l.TotalLandedCost.Float64()
		stats.LandedCosts = append(stats.LandedCosts, cost)
		stats.SelectionCounts[l.SelectedSupplierID]++
	}
	return stats, nil
}

type confidenceRepo struct {
	db *gorm.DB
}

func (r *confidenceRepo) Create(ctx context.Context, score *models.PriceConfidenceScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

func (r *confidenceRepo) LatestByRequirement(ctx context.Context, requirementID string) (*models.PriceConfidenceScore, error) {
	var score models.PriceConfidenceScore
	err := r.db.WithContext(ctx).
		Where("requirement_id = ?", requirementID).
		Order("created_at DESC").
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("price confidence", requirementID)
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}
