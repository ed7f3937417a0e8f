/**
 * @description
 * Service layer for price-confidence scoring.
 * Resolves the market snapshot for a category, runs the pure scorer, and
 * persists the full breakdown. Buyers get the public view (score, label,
 * message); the internal breakdown is admin/audit only.
 *
 * @dependencies
 * - backend/internal/engine: confidence formula
 * - backend/internal/store
 *
 * @notes
 * - A missing or stale market index degrades the score instead of failing it;
 *   the degraded flag rides on the persisted row.
 */

package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/config"
	"github.com/procurelane/backend/internal/engine"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"github.com/shopspring/decimal"
)

// ConfidenceService computes and serves price-confidence scores
type ConfidenceService struct {
	Store store.Store
	Index *MarketIndexStore

	Weights            engine.ConfidenceWeights
	BidSaturationCount int
}

// NewConfidenceService wires the service from configuration
func NewConfidenceService(st store.Store, index *MarketIndexStore, cfg *config.Config) *ConfidenceService {
	return &ConfidenceService{
		Store: st,
		Index: index,
		Weights: engine.ConfidenceWeights{
			PricePosition:   cfg.Engine.WeightPricePosition,
			MarketStability: cfg.Engine.WeightMarketStability,
			Competition:     cfg.Engine.WeightCompetition,
		},
		BidSaturationCount: cfg.Engine.BidSaturationCount,
	}
}

// ScoreParams carries one finalized price into the scorer
type ScoreParams struct {
	RequirementID string
	BidID         string
	Category      string
	FinalPrice    decimal.Decimal
	Mode          models.SelectionMode

	// TotalBids is read in bidding mode, HistoricalPriceVariance in auto-assign
	TotalBids               int
	HistoricalPriceVariance float64
}

func (p ScoreParams) validate() error {
	if strings.TrimSpace(p.RequirementID) == "" {
		return apperrors.NewValidation("requirement_id", "must not be empty")
	}
	if strings.TrimSpace(p.Category) == "" {
		return apperrors.NewValidation("category", "must not be empty")
	}
	if !p.FinalPrice.IsPositive() {
		return apperrors.NewValidation("final_price", "must be greater than zero")
	}
	if p.Mode != models.SelectionModeBidding && p.Mode != models.SelectionModeAutoAssign {
		return apperrors.NewValidation("selection_mode", "must be BIDDING or AUTO_ASSIGN")
	}
	return nil
}

// Score computes and persists the confidence record for a finalized price
func (s *ConfidenceService) Score(ctx context.Context, p ScoreParams) (*models.PriceConfidenceScore, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	input := engine.ConfidenceInput{
		FinalPrice:              p.FinalPrice,
		Mode:                    p.Mode,
		TotalBids:               p.TotalBids,
		HistoricalPriceVariance: p.HistoricalPriceVariance,
		BidSaturationCount:      s.BidSaturationCount,
	}

	index, usable := s.Index.Snapshot(ctx, p.Category)
	if usable {
		input.MinPrice = index.MinMarketPrice
		input.MaxPrice = index.MaxMarketPrice
		input.AveragePrice = index.AverageMarketPrice
		input.VolatilityIndex = index.VolatilityIndex
	} else {
		input.IndexUnusable = true
	}

	breakdown := engine.ComputeConfidence(input, s.Weights)

	record := &models.PriceConfidenceScore{
		ID:                uuid.NewString(),
		RequirementID:     p.RequirementID,
		BidID:             p.BidID,
		BuyerVisiblePrice: p.FinalPrice,
		ConfidenceScore:   breakdown.Score,
		ConfidenceLabel:   breakdown.Label,

		PricePosition:    breakdown.PricePosition,
		MarketStability:  breakdown.MarketStability,
		CompetitionScore: breakdown.CompetitionScore,
		PriceSpreadRatio: breakdown.PriceSpreadRatio,

		SelectionMode: p.Mode,
		BuyerMessage:  engine.BuyerMessage(breakdown.Label, breakdown.PricePosition),
		Degraded:      breakdown.Degraded,
	}
	if p.Mode == models.SelectionModeBidding {
		totalBids := p.TotalBids
		record.TotalBids = &totalBids
	} else {
		variance := p.HistoricalPriceVariance
		record.HistoricalPriceVariance = &variance
	}

	if err := s.Store.Confidences().Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// PublicView is the buyer-facing shape of a confidence record. It carries no
// bid counts, no competitor amounts, and no internal signal values.
type PublicView struct {
	RequirementID   string                 `json:"requirement_id"`
	ConfidenceScore int                    `json:"confidence_score"`
	ConfidenceLabel models.ConfidenceLabel `json:"confidence_label"`
	BuyerMessage    string                 `json:"buyer_message"`
	Degraded        bool                   `json:"degraded"`
}

// Latest returns the buyer-facing view of the newest score for a requirement
func (s *ConfidenceService) Latest(ctx context.Context, requirementID string) (*PublicView, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, apperrors.NewValidation("requirement_id", "must not be empty")
	}
	record, err := s.Store.Confidences().LatestByRequirement(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	return &PublicView{
		RequirementID:   record.RequirementID,
		ConfidenceScore: record.ConfidenceScore,
		ConfidenceLabel: record.ConfidenceLabel,
		BuyerMessage:    record.BuyerMessage,
		Degraded:        record.Degraded,
	}, nil
}

// Breakdown returns the full internal record for admin/audit callers
func (s *ConfidenceService) Breakdown(ctx context.Context, requirementID string) (*models.PriceConfidenceScore, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, apperrors.NewValidation("requirement_id", "must not be empty")
	}
	return s.Store.Confidences().LatestByRequirement(ctx, requirementID)
}
