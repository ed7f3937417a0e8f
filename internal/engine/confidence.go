/**
 * @description
 * Pure price-confidence scoring.
 * Converts a finalized price plus market/competition signals into a bounded
 * score, label, and buyer-facing message. The full breakdown stays internal.
 *
 * @dependencies
 * - github.com/shopspring/decimal
 *
 * @notes
 * - Missing or stale market data never fails a computation: stability and
 *   position degrade to neutral 0.5 and the result is flagged degraded.
 * - Buyer messages never reveal raw bid counts or competitor amounts.
 */

package engine

import (
	"math"

	"github.com/procurelane/backend/internal/models"
	"github.com/shopspring/decimal"
)

// positionEpsilon guards the price-position divisor when min == max
const positionEpsilon = 1e-9

// ConfidenceWeights are the configured formula weights (sum to 1.0)
type ConfidenceWeights struct {
	PricePosition   float64
	MarketStability float64
	Competition     float64
}

// ConfidenceInput carries everything the scorer needs, pre-resolved by the
// service layer.
type ConfidenceInput struct {
	FinalPrice decimal.Decimal

	MinPrice        decimal.Decimal
	MaxPrice        decimal.Decimal
	AveragePrice    decimal.Decimal
	VolatilityIndex float64 // in [0,1]
	// IndexUnusable marks a missing or stale market index; the scorer degrades
	// to neutral signals instead of failing
	IndexUnusable bool

	Mode models.SelectionMode
	// TotalBids drives the competition signal in bidding mode
	TotalBids int
	// HistoricalPriceVariance drives it in auto-assign mode, in [0,1]
	HistoricalPriceVariance float64
	// BidSaturationCount is the bid count at which competition saturates to 1
	BidSaturationCount int
}

// ConfidenceBreakdown is the full internal result
type ConfidenceBreakdown struct {
	PricePosition    float64
	MarketStability  float64
	CompetitionScore float64
	PriceSpreadRatio float64
	Score            int
	Label            models.ConfidenceLabel
	Degraded         bool
}

// ComputeConfidence evaluates the confidence formula:
//
//	score = round(100 × (wP×(1−price_position) + wS×market_stability + wC×competition))
//
// clamped to [0,100]. price_position is the final price's position in the
// [min,max] market range; lower is better.
func ComputeConfidence(in ConfidenceInput, w ConfidenceWeights) ConfidenceBreakdown {
	var out ConfidenceBreakdown

	if in.IndexUnusable {
		// Neutral midpoint signals, flagged rather than rejected
		out.PricePosition = 0.5
		out.MarketStability = 0.5
		out.Degraded = true
	} else {
		min, _ := in.MinPrice.Float64()
		max, _ := in.MaxPrice.Float64()
		avg, _ := in.AveragePrice.Float64()
		price, _ := in.FinalPrice.Float64()

		spread := max - min
		out.PricePosition = clamp01((price - min) / math.Max(spread, positionEpsilon))
		out.MarketStability = clamp01(1 - in.VolatilityIndex)
		if avg > 0 {
			out.PriceSpreadRatio = spread / avg
		}
	}

	out.CompetitionScore = competitionScore(in)

	raw := w.PricePosition*(1-out.PricePosition) +
		w.MarketStability*out.MarketStability +
		w.Competition*out.CompetitionScore

	score := int(math.Round(100 * raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	out.Score = score
	out.Label = LabelForScore(score)
	return out
}

// competitionScore saturates on bid count in bidding mode and inverts the
// historical price variance in auto-assign mode.
func competitionScore(in ConfidenceInput) float64 {
	if in.Mode == models.SelectionModeAutoAssign {
		return clamp01(1 - in.HistoricalPriceVariance)
	}
	sat := in.BidSaturationCount
	if sat <= 0 {
		sat = 5
	}
	return clamp01(float64(in.TotalBids) / float64(sat))
}

// LabelForScore buckets a score deterministically: HIGH ≥ 70, MEDIUM ≥ 40,
// LOW otherwise.
func LabelForScore(score int) models.ConfidenceLabel {
	switch {
	case score >= 70:
		return models.ConfidenceHigh
	case score >= 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// BuyerMessage picks the buyer-facing sentence for a label and price
// position. Messages deliberately contain no bid counts and no amounts.
func BuyerMessage(label models.ConfidenceLabel, pricePosition float64) string {
	lowPosition := pricePosition <= 0.5

	switch label {
	case models.ConfidenceHigh:
		if lowPosition {
			return "This is among the most competitive prices in the market right now."
		}
		return "This price is well supported by current market activity."
	case models.ConfidenceMedium:
		if lowPosition {
			return "This price is competitive, though market conditions are still settling."
		}
		return "This price is within the typical market range for this category."
	default:
		if lowPosition {
			return "This price looks favorable, but we have limited market data to confirm it."
		}
		return "Market data for this category is limited; we recommend reviewing this price with your account manager."
	}
}
