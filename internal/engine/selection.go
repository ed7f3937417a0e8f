/**
 * @description
 * Pure candidate ranking for selection runs.
 * Mode A (bidding) ranks by landed cost with a risk fallback; Mode B
 * (auto-assign) ranks a reliability-weighted composite. No I/O here: the
 * service layer assembles candidates, this package decides.
 *
 * @dependencies
 * - github.com/shopspring/decimal
 */

package engine

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrNoEligibleCandidate is returned when every candidate fails the risk
// thresholds. The service layer wraps it with the requirement context.
var ErrNoEligibleCandidate = errors.New("no candidate passes the risk thresholds")

// Fallback reasons recorded on SelectionLog when L1 is rejected
const (
	FallbackReasonQualityRisk  = "quality_risk_above_ceiling"
	FallbackReasonDeliveryProb = "delivery_probability_below_floor"
)

// Candidate is one supplier considered by a selection run
type Candidate struct {
	SupplierID      string
	BidID           string
	MaterialCost    decimal.Decimal
	LogisticsCost   decimal.Decimal
	TotalLandedCost decimal.Decimal

	DeliveryProbability float64 // in [0,1]
	QualityRisk         float64 // in [0,1]
	// DataConfidenceLow marks candidates scored with neutral defaults because
	// no performance record was on file
	DataConfidenceLow bool

	// Mode B signals
	WinRate      float64 // historical L1 win-rate in the category, [0,1]
	Availability float64 // capacity availability ratio, [0,1]
}

// Thresholds are the configured eligibility limits applied to every mode
type Thresholds struct {
	QualityRiskCeiling float64
	DeliveryProbFloor  float64
}

// Eligible reports whether the candidate passes both thresholds
func (t Thresholds) Eligible(c Candidate) bool {
	return c.QualityRisk <= t.QualityRiskCeiling && c.DeliveryProbability >= t.DeliveryProbFloor
}

// SelectionResult is the outcome of a pick in either mode
type SelectionResult struct {
	Selected          Candidate
	RunnersUp         []Candidate // next candidates in rank order, at most two
	FallbackTriggered bool
	FallbackReason    string
}

// RankByLandedCost returns candidates sorted by ascending total landed cost,
// ties broken by supplier id for determinism. The input is not modified.
func RankByLandedCost(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		cmp := ranked[i].TotalLandedCost.Cmp(ranked[j].TotalLandedCost)
		if cmp != 0 {
			return cmp < 0
		}
		return ranked[i].SupplierID < ranked[j].SupplierID
	})
	return ranked
}

// PickModeA selects the lowest-landed-cost candidate ("L1"), falling back to
// the next-lowest candidate passing both thresholds when L1 fails one.
func PickModeA(candidates []Candidate, t Thresholds) (*SelectionResult, error) {
	if len(candidates) == 0 {
		return nil, ErrNoEligibleCandidate
	}

	ranked := RankByLandedCost(candidates)

	l1 := ranked[0]
	if t.Eligible(l1) {
		return &SelectionResult{
			Selected:  l1,
			RunnersUp: nextTwo(ranked, 0),
		}, nil
	}

	// Record which threshold L1 failed; quality risk checked first
	reason := FallbackReasonDeliveryProb
	if l1.QualityRisk > t.QualityRiskCeiling {
		reason = FallbackReasonQualityRisk
	}

	for i := 1; i < len(ranked); i++ {
		if !t.Eligible(ranked[i]) {
			continue
		}
		return &SelectionResult{
			Selected:          ranked[i],
			RunnersUp:         nextTwo(ranked, i),
			FallbackTriggered: true,
			FallbackReason:    reason,
		}, nil
	}

	return nil, ErrNoEligibleCandidate
}

// Mode B composite weights. Delivery reliability deliberately dominates raw
// cost, the opposite emphasis from Mode A.
const (
	modeBWeightDelivery     = 0.45
	modeBWeightCost         = 0.25
	modeBWeightWinRate      = 0.15
	modeBWeightAvailability = 0.15
)

// ScoreModeB computes the auto-assign composite for one candidate. maxCost is
// the highest landed cost among the run's candidates, used to normalize.
func ScoreModeB(c Candidate, maxCost decimal.Decimal) float64 {
	costScore := 1.0
	if maxCost.IsPositive() {
		ratio, _ := c.TotalLandedCost.Div(maxCost).Float64()
		costScore = 1 - clamp01(ratio)
	}
	return modeBWeightDelivery*c.DeliveryProbability +
		modeBWeightCost*costScore +
		modeBWeightWinRate*clamp01(c.WinRate) +
		modeBWeightAvailability*clamp01(c.Availability)
}

// PickModeB selects the highest composite-score candidate among those passing
// the thresholds.
func PickModeB(candidates []Candidate, t Thresholds) (*SelectionResult, error) {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if t.Eligible(c) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleCandidate
	}

	maxCost := decimal.Zero
	for _, c := range eligible {
		if c.TotalLandedCost.Cmp(maxCost) > 0 {
			maxCost = c.TotalLandedCost
		}
	}

	ranked := make([]Candidate, len(eligible))
	copy(ranked, eligible)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ScoreModeB(ranked[i], maxCost), ScoreModeB(ranked[j], maxCost)
		if si != sj {
			return si > sj
		}
		return ranked[i].SupplierID < ranked[j].SupplierID
	})

	return &SelectionResult{
		Selected:  ranked[0],
		RunnersUp: nextTwo(ranked, 0),
	}, nil
}

// nextTwo returns up to two candidates ranked after index i
func nextTwo(ranked []Candidate, i int) []Candidate {
	end := i + 3
	if end > len(ranked) {
		end = len(ranked)
	}
	out := make([]Candidate, 0, 2)
	out = append(out, ranked[i+1:end]...)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
