/**
 * @description
 * GORM repositories for lane auctions and sealed bids.
 *
 * @dependencies
 * - gorm.io/gorm
 * - gorm.io/gorm/clause: row locking and upserts
 */

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auctionRepo struct {
	db *gorm.DB
}

func (r *auctionRepo) Create(ctx context.Context, auction *models.LaneAuction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

func (r *auctionRepo) Get(ctx context.Context, id string) (*models.LaneAuction, error) {
	var auction models.LaneAuction
	err := r.db.WithContext(ctx).First(&auction, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("auction", id)
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepo) GetForUpdate(ctx context.Context, id string) (*models.LaneAuction, error) {
	var auction models.LaneAuction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&auction, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("auction", id)
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepo) Update(ctx context.Context, auction *models.LaneAuction) error {
	return r.db.WithContext(ctx).Save(auction).Error
}

func (r *auctionRepo) List(ctx context.Context, filter store.AuctionFilter) ([]models.LaneAuction, error) {
	query := r.db.WithContext(ctx).Model(&models.LaneAuction{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Country != "" {
		query = query.Where("country = ?", filter.Country)
	}

	query = query.Order("end_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var auctions []models.LaneAuction
	if err := query.Find(&auctions).Error; err != nil {
		return nil, err
	}
	return auctions, nil
}

func (r *auctionRepo) ExpiredOpenIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.LaneAuction{}).
		Where("status = ? AND end_at < ?", models.AuctionStatusOpen, now).
		Order("end_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *auctionRepo) HasOpenForLane(ctx context.Context, category, country string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LaneAuction{}).
		Where("status = ? AND category = ? AND country = ?", models.AuctionStatusOpen, category, country).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type bidRepo struct {
	db *gorm.DB
}

// Upsert inserts the bid or updates the supplier's live bid in place. The
// (auction_id, supplier_id) unique index is the conflict target; created_at
// is preserved so resubmission cannot improve tie-break position. RETURNING
// writes the stored row back into bidRecord, so a resubmitting caller gets
// the existing row's id and created_at, not the values it sent.
func (r *bidRepo) Upsert(ctx context.Context, bidRecord *models.AuctionBid) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "auction_id"}, {Name: "supplier_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bid_amount": bidRecord.BidAmount,
			"bid_tier":   bidRecord.BidTier,
			"updated_at": gorm.Expr("now()"),
		}),
	}, clause.Returning{}).Create(bidRecord).Error
}

func (r *bidRepo) ListByAuction(ctx context.Context, auctionID string) ([]models.AuctionBid, error) {
	var bids []models.AuctionBid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("bid_amount DESC, created_at ASC, id ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepo) SetStatuses(ctx context.Context, auctionID string, accepted, outbid []string) error {
	if len(accepted) > 0 {
		err := r.db.WithContext(ctx).
			Model(&models.AuctionBid{}).
			Where("auction_id = ? AND id IN ?", auctionID, accepted).
			Update("bid_status", models.BidStatusAccepted).Error
		if err != nil {
			return err
		}
	}
	if len(outbid) > 0 {
		err := r.db.WithContext(ctx).
			Model(&models.AuctionBid{}).
			Where("auction_id = ? AND id IN ?", auctionID, outbid).
			Update("bid_status", models.BidStatusOutbid).Error
		if err != nil {
			return err
		}
	}
	return nil
}
