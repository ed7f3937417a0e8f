package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/engine"
	"github.com/procurelane/backend/internal/integrations/inventory"
	"github.com/procurelane/backend/internal/integrations/logistics"
	"github.com/procurelane/backend/internal/integrations/rfq"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"github.com/shopspring/decimal"
)

type fakeRequirements struct {
	requirement *rfq.Requirement
	bids        []rfq.SupplierBid
}

func (f *fakeRequirements) GetRequirement(ctx context.Context, requirementID string) (*rfq.Requirement, error) {
	if f.requirement == nil || f.requirement.ID != requirementID {
		return nil, apperrors.NewNotFound("requirement", requirementID)
	}
	return f.requirement, nil
}

func (f *fakeRequirements) ListBids(ctx context.Context, requirementID string) ([]rfq.SupplierBid, error) {
	return f.bids, nil
}

type fakeLogistics struct {
	perSupplier   map[string]string // supplier id → quote
	flat          string
	failSuppliers map[string]bool // suppliers whose quote requests error
}

func (f *fakeLogistics) Quote(ctx context.Context, q logistics.QuoteRequest) (decimal.Decimal, error) {
	if f.failSuppliers[q.SupplierID] {
		return decimal.Zero, errors.New("quote unavailable")
	}
	if rate, ok := f.perSupplier[q.SupplierID]; ok {
		return decimal.RequireFromString(rate), nil
	}
	return decimal.RequireFromString(f.flat), nil
}

type fakeInventory struct {
	snapshot []inventory.SupplierCapacity
}

func (f *fakeInventory) CapacitySnapshot(ctx context.Context, category, country string) ([]inventory.SupplierCapacity, error) {
	return f.snapshot, nil
}

type fakeMetrics struct {
	metrics map[string]SupplierMetrics
}

func (f *fakeMetrics) Metrics(ctx context.Context, supplierID string) SupplierMetrics {
	if m, ok := f.metrics[supplierID]; ok {
		return m
	}
	return SupplierMetrics{
		DeliveryProbability: models.NeutralDeliveryProbability,
		QualityRisk:         models.NeutralQualityRisk,
		LowConfidence:       true,
	}
}

func newTestSelectionService(st *memStore, reqs *fakeRequirements, metrics *fakeMetrics) *SelectionService {
	return &SelectionService{
		Store:        st,
		Requirements: reqs,
		Logistics:    &fakeLogistics{flat: "50"},
		Inventory:    &fakeInventory{},
		Performance:  metrics,
		Thresholds: engine.Thresholds{
			QualityRiskCeiling: 0.5,
			DeliveryProbFloor:  0.6,
		},
		historyWindow: 100,
	}
}

func steelRequirement() *rfq.Requirement {
	return &rfq.Requirement{
		ID:                 "req-1",
		Category:           "steel-rebar",
		Quantity:           decimal.RequireFromString("10"),
		Unit:               "MT",
		DestinationCountry: "IN",
	}
}

func TestRunSelectionModeAPicksLowestLandedCost(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-cheap", Rate: decimal.RequireFromString("100")},
			{ID: "bid-2", SupplierID: "sup-mid", Rate: decimal.RequireFromString("110")},
			{ID: "bid-3", SupplierID: "sup-dear", Rate: decimal.RequireFromString("130")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-cheap": {DeliveryProbability: 0.9, QualityRisk: 0.1},
		"sup-mid":   {DeliveryProbability: 0.9, QualityRisk: 0.1},
		"sup-dear":  {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if logRecord.SelectedSupplierID != "sup-cheap" {
		t.Fatalf("selected = %s, want sup-cheap", logRecord.SelectedSupplierID)
	}
	// 100×10 material + 50 logistics
	if want := decimal.RequireFromString("1050"); !logRecord.TotalLandedCost.Equal(want) {
		t.Errorf("landed cost = %s, want %s", logRecord.TotalLandedCost, want)
	}
	if logRecord.FallbackTriggered {
		t.Error("fallback triggered on a clean L1")
	}
	if len(logRecord.RunnerUpSuppliers) != 2 || logRecord.RunnerUpSuppliers[0] != "sup-mid" {
		t.Errorf("runners-up = %v, want [sup-mid sup-dear]", logRecord.RunnerUpSuppliers)
	}
	if logRecord.Unpersisted {
		t.Error("log flagged unpersisted on a clean write")
	}
}

func TestRunSelectionModeAFallsBackPastRiskyL1(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-risky", Rate: decimal.RequireFromString("90")},
			{ID: "bid-2", SupplierID: "sup-solid", Rate: decimal.RequireFromString("100")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-risky": {DeliveryProbability: 0.95, QualityRisk: 0.8},
		"sup-solid": {DeliveryProbability: 0.9, QualityRisk: 0.2},
	}}
	svc := newTestSelectionService(st, reqs, metrics)

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if logRecord.SelectedSupplierID != "sup-solid" {
		t.Fatalf("selected = %s, want sup-solid", logRecord.SelectedSupplierID)
	}
	if !logRecord.FallbackTriggered {
		t.Error("fallback not recorded")
	}
	if logRecord.FallbackReason != engine.FallbackReasonQualityRisk {
		t.Errorf("fallback reason = %q, want %q", logRecord.FallbackReason, engine.FallbackReasonQualityRisk)
	}
}

func TestRunSelectionNoEligibleSupplier(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-risky", Rate: decimal.RequireFromString("90")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-risky": {DeliveryProbability: 0.4, QualityRisk: 0.9},
	}}
	svc := newTestSelectionService(st, reqs, metrics)

	_, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if !apperrors.IsNoEligibleSupplier(err) {
		t.Fatalf("err = %v, want NoEligibleSupplierError", err)
	}
	if _, lookupErr := st.Selections().LatestByRequirement(context.Background(), "req-1"); !apperrors.IsNotFound(lookupErr) {
		t.Error("a failed run must not leave a selection log")
	}
}

func TestRunSelectionIdempotentPerRequirement(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-a", Rate: decimal.RequireFromString("100")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-a": {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)
	ctx := context.Background()

	first, err := svc.RunSelection(ctx, "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.RunSelection(ctx, "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("second run recomputed: %s vs %s", first.ID, second.ID)
	}

	runs, _ := st.Selections().List(ctx, store.SelectionFilter{RequirementID: "req-1"})
	if len(runs) != 1 {
		t.Fatalf("selection logs = %d, want 1", len(runs))
	}
}

func TestRunSelectionUnpersistedAfterDoubleWriteFailure(t *testing.T) {
	st := newMemStore()
	st.failSelectionCreates = 2
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-a", Rate: decimal.RequireFromString("100")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-a": {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if !logRecord.Unpersisted {
		t.Fatal("log not flagged unpersisted after two write failures")
	}
	if logRecord.SelectedSupplierID != "sup-a" {
		t.Errorf("decision lost: selected = %s", logRecord.SelectedSupplierID)
	}
}

func TestRunSelectionRetriesWriteOnce(t *testing.T) {
	st := newMemStore()
	st.failSelectionCreates = 1
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-a", Rate: decimal.RequireFromString("100")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-a": {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatal(err)
	}
	if logRecord.Unpersisted {
		t.Fatal("single transient failure must be absorbed by the retry")
	}
	if _, err := st.Selections().LatestByRequirement(context.Background(), "req-1"); err != nil {
		t.Fatalf("log not persisted after retry: %v", err)
	}
}

func TestRunSelectionModeBWeighsReliabilityOverCost(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{requirement: steelRequirement()}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-reliable": {DeliveryProbability: 0.98, QualityRisk: 0.1},
		"sup-cheap":    {DeliveryProbability: 0.62, QualityRisk: 0.2},
	}}
	svc := newTestSelectionService(st, reqs, metrics)
	svc.Inventory = &fakeInventory{snapshot: []inventory.SupplierCapacity{
		{SupplierID: "sup-reliable", AvailableQty: decimal.RequireFromString("50"), UnitRate: decimal.RequireFromString("105")},
		{SupplierID: "sup-cheap", AvailableQty: decimal.RequireFromString("50"), UnitRate: decimal.RequireFromString("100")},
	}}

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeAutoAssign)
	if err != nil {
		t.Fatalf("RunSelection: %v", err)
	}
	if logRecord.SelectedSupplierID != "sup-reliable" {
		t.Fatalf("selected = %s, want sup-reliable", logRecord.SelectedSupplierID)
	}
	if logRecord.SelectionMode != models.SelectionModeAutoAssign {
		t.Errorf("mode = %s, want AUTO_ASSIGN", logRecord.SelectionMode)
	}
}

func TestRunSelectionFlagsLowConfidenceData(t *testing.T) {
	st := newMemStore()
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-unknown", Rate: decimal.RequireFromString("100")},
		},
	}
	// no metrics on file: neutral defaults, flagged
	svc := newTestSelectionService(st, reqs, &fakeMetrics{})

	logRecord, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatal(err)
	}
	if !logRecord.DataConfidenceLow {
		t.Fatal("neutral-default candidate not flagged low confidence")
	}
	if logRecord.DeliverySuccessProbability != models.NeutralDeliveryProbability {
		t.Errorf("delivery probability = %v, want neutral default", logRecord.DeliverySuccessProbability)
	}
}

func TestRunSelectionValidation(t *testing.T) {
	svc := newTestSelectionService(newMemStore(), &fakeRequirements{}, &fakeMetrics{})
	ctx := context.Background()

	if _, err := svc.RunSelection(ctx, "", models.SelectionModeBidding); !apperrors.IsValidation(err) {
		t.Errorf("empty requirement: err = %v, want ValidationError", err)
	}
	if _, err := svc.RunSelection(ctx, "req-1", "SOMETHING"); !apperrors.IsValidation(err) {
		t.Errorf("bad mode: err = %v, want ValidationError", err)
	}
	if _, err := svc.RunSelection(ctx, "req-missing", models.SelectionModeBidding); !apperrors.IsNotFound(err) {
		t.Errorf("missing requirement: err = %v, want NotFoundError", err)
	}
}

func TestRunSelectionTriggersConfidenceScore(t *testing.T) {
	st := newMemStore()
	st.indexes["steel-rebar"] = &models.MarketPriceIndex{
		ProductCategory:    "steel-rebar",
		MinMarketPrice:     decimal.RequireFromString("900"),
		MaxMarketPrice:     decimal.RequireFromString("1500"),
		AverageMarketPrice: decimal.RequireFromString("1200"),
		VolatilityIndex:    0.2,
		LastUpdated:        time.Now(),
	}
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-a", Rate: decimal.RequireFromString("100")},
			{ID: "bid-2", SupplierID: "sup-b", Rate: decimal.RequireFromString("110")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-a": {DeliveryProbability: 0.9, QualityRisk: 0.1},
		"sup-b": {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)
	svc.Confidence = &ConfidenceService{
		Store: st,
		Index: &MarketIndexStore{
			Store:           st,
			FreshnessWindow: 24 * time.Hour,
			Now:             time.Now,
		},
		Weights: engine.ConfidenceWeights{
			PricePosition:   0.40,
			MarketStability: 0.35,
			Competition:     0.25,
		},
		BidSaturationCount: 5,
	}

	if _, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding); err != nil {
		t.Fatal(err)
	}

	score, err := st.Confidences().LatestByRequirement(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("no confidence record after selection: %v", err)
	}
	if score.Degraded {
		t.Error("score degraded with a fresh index on file")
	}
	if score.TotalBids == nil || *score.TotalBids != 2 {
		t.Errorf("total bids = %v, want 2", score.TotalBids)
	}
}

func TestRunSelectionCountsUnquotableBidsInCompetition(t *testing.T) {
	st := newMemStore()
	st.indexes["steel-rebar"] = &models.MarketPriceIndex{
		ProductCategory:    "steel-rebar",
		MinMarketPrice:     decimal.RequireFromString("900"),
		MaxMarketPrice:     decimal.RequireFromString("1500"),
		AverageMarketPrice: decimal.RequireFromString("1200"),
		VolatilityIndex:    0.2,
		LastUpdated:        time.Now(),
	}
	reqs := &fakeRequirements{
		requirement: steelRequirement(),
		bids: []rfq.SupplierBid{
			{ID: "bid-1", SupplierID: "sup-a", Rate: decimal.RequireFromString("100")},
			{ID: "bid-2", SupplierID: "sup-b", Rate: decimal.RequireFromString("110")},
			{ID: "bid-3", SupplierID: "sup-c", Rate: decimal.RequireFromString("120")},
		},
	}
	metrics := &fakeMetrics{metrics: map[string]SupplierMetrics{
		"sup-a": {DeliveryProbability: 0.9, QualityRisk: 0.1},
		"sup-b": {DeliveryProbability: 0.9, QualityRisk: 0.1},
		"sup-c": {DeliveryProbability: 0.9, QualityRisk: 0.1},
	}}
	svc := newTestSelectionService(st, reqs, metrics)
	// sup-c's quote fails, so it never becomes a candidate. The bid still
	// counts toward competition: three suppliers showed up for the lane.
	svc.Logistics = &fakeLogistics{flat: "50", failSuppliers: map[string]bool{"sup-c": true}}
	svc.Confidence = &ConfidenceService{
		Store: st,
		Index: &MarketIndexStore{
			Store:           st,
			FreshnessWindow: 24 * time.Hour,
			Now:             time.Now,
		},
		Weights: engine.ConfidenceWeights{
			PricePosition:   0.40,
			MarketStability: 0.35,
			Competition:     0.25,
		},
		BidSaturationCount: 5,
	}

	result, err := svc.RunSelection(context.Background(), "req-1", models.SelectionModeBidding)
	if err != nil {
		t.Fatal(err)
	}
	if result.SelectedSupplierID != "sup-a" {
		t.Errorf("selected %s, want sup-a", result.SelectedSupplierID)
	}

	score, err := st.Confidences().LatestByRequirement(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("no confidence record after selection: %v", err)
	}
	if score.TotalBids == nil || *score.TotalBids != 3 {
		t.Errorf("total bids = %v, want 3 including the unquotable bid", score.TotalBids)
	}
}
