/**
 * @description
 * Service layer for supplier selection runs.
 * Mode A derives a winner from requirement bids by landed cost with a risk
 * fallback; Mode B auto-assigns from inventory capacity and historical
 * reliability. One immutable SelectionLog per completed run.
 *
 * @dependencies
 * - backend/internal/engine: candidate ranking
 * - backend/internal/integrations/{rfq,logistics,inventory}: collaborators
 * - backend/internal/store
 *
 * @notes
 * - Runs are idempotent per requirement: an exclusive lock keyed on the
 *   requirement id serializes concurrent calls, and the second caller
 *   observes the first run's log instead of recomputing.
 * - NoEligibleSupplierError is surfaced for manual admin resolution, never
 *   silently defaulted to an arbitrary supplier.
 */

package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/config"
	"github.com/procurelane/backend/internal/engine"
	"github.com/procurelane/backend/internal/integrations/inventory"
	"github.com/procurelane/backend/internal/integrations/logistics"
	"github.com/procurelane/backend/internal/integrations/rfq"
	"github.com/procurelane/backend/internal/logger"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"github.com/procurelane/backend/internal/store/postgres"
	"github.com/shopspring/decimal"
)

// RequirementSource supplies requirement data and requirement-level bids
type RequirementSource interface {
	GetRequirement(ctx context.Context, requirementID string) (*rfq.Requirement, error)
	ListBids(ctx context.Context, requirementID string) ([]rfq.SupplierBid, error)
}

// LogisticsQuoter estimates delivery cost for one candidate
type LogisticsQuoter interface {
	Quote(ctx context.Context, quoteReq logistics.QuoteRequest) (decimal.Decimal, error)
}

// CapacityProvider supplies the inventory snapshot for auto-assign runs
type CapacityProvider interface {
	CapacitySnapshot(ctx context.Context, category, country string) ([]inventory.SupplierCapacity, error)
}

// MetricsSource resolves supplier performance metrics
type MetricsSource interface {
	Metrics(ctx context.Context, supplierID string) SupplierMetrics
}

// SelectionService runs supplier selection for requirements
type SelectionService struct {
	Store        store.Store
	Requirements RequirementSource
	Logistics    LogisticsQuoter
	Inventory    CapacityProvider
	Performance  MetricsSource
	Confidence   *ConfidenceService

	Thresholds engine.Thresholds

	// historyWindow bounds how many past runs feed the Mode B signals
	historyWindow int
}

// NewSelectionService wires the service from configuration
func NewSelectionService(
	st store.Store,
	requirements RequirementSource,
	logisticsQuoter LogisticsQuoter,
	capacity CapacityProvider,
	performance MetricsSource,
	confidence *ConfidenceService,
	cfg *config.Config,
) *SelectionService {
	return &SelectionService{
		Store:        st,
		Requirements: requirements,
		Logistics:    logisticsQuoter,
		Inventory:    capacity,
		Performance:  performance,
		Confidence:   confidence,
		Thresholds: engine.Thresholds{
			QualityRiskCeiling: cfg.Engine.QualityRiskCeiling,
			DeliveryProbFloor:  cfg.Engine.DeliveryProbFloor,
		},
		historyWindow: 100,
	}
}

// RunSelection executes one selection run for a requirement. Idempotent: if a
// completed run already exists for the requirement, it is returned unchanged.
func (s *SelectionService) RunSelection(ctx context.Context, requirementID string, mode models.SelectionMode) (*models.SelectionLog, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, apperrors.NewValidation("requirement_id", "must not be empty")
	}
	if mode != models.SelectionModeBidding && mode != models.SelectionModeAutoAssign {
		return nil, apperrors.NewValidation("selection_mode", "must be BIDDING or AUTO_ASSIGN")
	}

	var result *models.SelectionLog
	err := s.Store.WithRequirementLock(ctx, requirementID, func() error {
		// A concurrent run may have completed while we waited on the lock
		existing, err := s.Store.Selections().LatestByRequirement(ctx, requirementID)
		if err == nil {
			result = existing
			return nil
		}
		if !apperrors.IsNotFound(err) {
			return err
		}

		result, err = s.run(ctx, requirementID, mode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run performs the actual decision and persists it. Caller holds the
// requirement lock.
func (s *SelectionService) run(ctx context.Context, requirementID string, mode models.SelectionMode) (*models.SelectionLog, error) {
	requirement, err := s.Requirements.GetRequirement(ctx, requirementID)
	if err != nil {
		return nil, err
	}

	var candidates []engine.Candidate
	var totalBids int
	switch mode {
	case models.SelectionModeBidding:
		candidates, totalBids, err = s.biddingCandidates(ctx, requirement)
	case models.SelectionModeAutoAssign:
		candidates, err = s.autoAssignCandidates(ctx, requirement)
	}
	if err != nil {
		return nil, err
	}

	var picked *engine.SelectionResult
	if mode == models.SelectionModeBidding {
		picked, err = engine.PickModeA(candidates, s.Thresholds)
	} else {
		picked, err = engine.PickModeB(candidates, s.Thresholds)
	}
	if err != nil {
		if errors.Is(err, engine.ErrNoEligibleCandidate) {
			return nil, &apperrors.NoEligibleSupplierError{
				RequirementID: requirementID,
				Candidates:    len(candidates),
				Reason:        err.Error(),
			}
		}
		return nil, err
	}

	logRecord := buildSelectionLog(requirement, mode, picked, candidates)

	if err := s.persistWithRetry(ctx, logRecord); err != nil {
		// The decision stands; the caller owns retrying the write
		logger.Error("selection log for requirement %s unpersisted after retry: %v", requirementID, err)
		logRecord.Unpersisted = true
		return logRecord, nil
	}

	s.scoreConfidence(ctx, requirement, mode, picked, totalBids)

	return logRecord, nil
}

func buildSelectionLog(requirement *rfq.Requirement, mode models.SelectionMode, picked *engine.SelectionResult, candidates []engine.Candidate) *models.SelectionLog {
	runnerUps := make(models.StringArray, 0, len(picked.RunnersUp))
	for _, c := range picked.RunnersUp {
		runnerUps = append(runnerUps, c.SupplierID)
	}

	dataConfidenceLow := picked.Selected.DataConfidenceLow
	for _, c := range candidates {
		if c.DataConfidenceLow {
			dataConfidenceLow = true
			break
		}
	}

	selected := picked.Selected
	return &models.SelectionLog{
		ID:                 uuid.NewString(),
		RequirementID:      requirement.ID,
		SelectionMode:      mode,
		Category:           requirement.Category,
		SelectedSupplierID: selected.SupplierID,
		MaterialCost:       selected.MaterialCost,
		LogisticsCost:      selected.LogisticsCost,
		TotalLandedCost:    selected.MaterialCost.Add(selected.LogisticsCost),

		DeliverySuccessProbability: selected.DeliveryProbability,
		QualityRiskScore:           selected.QualityRisk,

		FallbackTriggered: picked.FallbackTriggered,
		FallbackReason:    picked.FallbackReason,
		RunnerUpSuppliers: runnerUps,
		DataConfidenceLow: dataConfidenceLow,
	}
}

// biddingCandidates assembles Mode A candidates from the requirement's bids.
// The second return is the raw bid count: the competition signal is defined
// over every bid received, including ones dropped here as unquotable.
func (s *SelectionService) biddingCandidates(ctx context.Context, requirement *rfq.Requirement) ([]engine.Candidate, int, error) {
	bids, err := s.Requirements.ListBids(ctx, requirement.ID)
	if err != nil {
		return nil, 0, err
	}

	candidates := make([]engine.Candidate, 0, len(bids))
	for _, b := range bids {
		materialCost := b.Rate.Mul(requirement.Quantity)

		logisticsCost, err := s.Logistics.Quote(ctx, logistics.QuoteRequest{
			Category:           requirement.Category,
			Quantity:           requirement.Quantity,
			Unit:               requirement.Unit,
			SupplierID:         b.SupplierID,
			DestinationCountry: requirement.DestinationCountry,
		})
		if err != nil {
			// An unquotable candidate cannot be landed-cost ranked; skip it
			logger.Error("logistics quote failed for supplier %s on requirement %s: %v", b.SupplierID, requirement.ID, err)
			continue
		}

		metrics := s.Performance.Metrics(ctx, b.SupplierID)
		candidates = append(candidates, engine.Candidate{
			SupplierID:          b.SupplierID,
			BidID:               b.ID,
			MaterialCost:        materialCost,
			LogisticsCost:       logisticsCost,
			TotalLandedCost:     materialCost.Add(logisticsCost),
			DeliveryProbability: metrics.DeliveryProbability,
			QualityRisk:         metrics.QualityRisk,
			DataConfidenceLow:   metrics.LowConfidence,
		})
	}
	return candidates, len(bids), nil
}

// autoAssignCandidates assembles Mode B candidates from the inventory
// snapshot plus historical win-rates in the category
func (s *SelectionService) autoAssignCandidates(ctx context.Context, requirement *rfq.Requirement) ([]engine.Candidate, error) {
	snapshot, err := s.Inventory.CapacitySnapshot(ctx, requirement.Category, requirement.DestinationCountry)
	if err != nil {
		return nil, err
	}

	stats, err := s.Store.Selections().CategoryStats(ctx, requirement.Category, s.historyWindow)
	if err != nil {
		return nil, err
	}

	candidates := make([]engine.Candidate, 0, len(snapshot))
	for _, sc := range snapshot {
		if !sc.AvailableQty.IsPositive() {
			continue
		}

		materialCost := sc.UnitRate.Mul(requirement.Quantity)
		logisticsCost, err := s.Logistics.Quote(ctx, logistics.QuoteRequest{
			Category:           requirement.Category,
			Quantity:           requirement.Quantity,
			Unit:               requirement.Unit,
			SupplierID:         sc.SupplierID,
			DestinationCountry: requirement.DestinationCountry,
		})
		if err != nil {
			logger.Error("logistics quote failed for supplier %s on requirement %s: %v", sc.SupplierID, requirement.ID, err)
			continue
		}

		availability := 1.0
		if requirement.Quantity.IsPositive() {
			ratio, _ := sc.AvailableQty.Div(requirement.Quantity).Float64()
			if ratio < 1 {
				availability = ratio
			}
		}

		winRate := 0.0
		if stats.Runs > 0 {
			winRate = float64(stats.SelectionCounts[sc.SupplierID]) / float64(stats.Runs)
		}

		metrics := s.Performance.Metrics(ctx, sc.SupplierID)
		candidates = append(candidates, engine.Candidate{
			SupplierID:          sc.SupplierID,
			MaterialCost:        materialCost,
			LogisticsCost:       logisticsCost,
			TotalLandedCost:     materialCost.Add(logisticsCost),
			DeliveryProbability: metrics.DeliveryProbability,
			QualityRisk:         metrics.QualityRisk,
			DataConfidenceLow:   metrics.LowConfidence,
			WinRate:             winRate,
			Availability:        availability,
		})
	}
	return candidates, nil
}

// persistWithRetry writes the selection log, retrying transient failures
// exactly once before surfacing.
func (s *SelectionService) persistWithRetry(ctx context.Context, logRecord *models.SelectionLog) error {
	err := s.Store.Selections().Create(ctx, logRecord)
	if err == nil {
		return nil
	}

	if postgres.IsTransient(err) {
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
	return s.Store.Selections().Create(ctx, logRecord)
}

// scoreConfidence finalizes the price explanation for the buyer. Failures are
// logged, never allowed to undo a completed selection.
func (s *SelectionService) scoreConfidence(ctx context.Context, requirement *rfq.Requirement, mode models.SelectionMode, picked *engine.SelectionResult, totalBids int) {
	if s.Confidence == nil {
		return
	}

	params := ScoreParams{
		RequirementID: requirement.ID,
		BidID:         picked.Selected.BidID,
		Category:      requirement.Category,
		FinalPrice:    picked.Selected.TotalLandedCost,
		Mode:          mode,
	}
	if mode == models.SelectionModeBidding {
		params.TotalBids = totalBids
	} else {
		variance, err := s.historicalPriceVariance(ctx, requirement.Category)
		if err != nil {
			logger.Error("historical price variance lookup failed for %s: %v", requirement.Category, err)
			variance = 1 // unknown history reads as maximum variance
		}
		params.HistoricalPriceVariance = variance
	}

	if _, err := s.Confidence.Score(ctx, params); err != nil {
		logger.Error("confidence scoring failed for requirement %s: %v", requirement.ID, err)
	}
}

// historicalPriceVariance is the coefficient of variation of recent landed
// costs in a category, clamped to [0,1].
func (s *SelectionService) historicalPriceVariance(ctx context.Context, category string) (float64, error) {
	stats, err := s.Store.Selections().CategoryStats(ctx, category, s.historyWindow)
	if err != nil {
		return 0, err
	}
	if len(stats.LandedCosts) < 2 {
		return 1, nil // too little history to call the market settled
	}

	mean := 0.0
	for _, c := range stats.LandedCosts {
		mean += c
	}
	mean /= float64(len(stats.LandedCosts))
	if mean <= 0 {
		return 1, nil
	}

	variance := 0.0
	for _, c := range stats.LandedCosts {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(stats.LandedCosts))

	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		cv = 1
	}
	return cv, nil
}
