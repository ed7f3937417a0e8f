/**
 * @description
 * In-memory store.Store used by the service tests. Behaves like the Postgres
 * adapter for the operations the services exercise, including per-requirement
 * locking and bid upsert semantics, without needing a database.
 */

package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
)

type memStore struct {
	mu sync.Mutex

	auctions    map[string]*models.LaneAuction
	bids        map[string]*models.AuctionBid
	selections  []*models.SelectionLog
	indexes     map[string]*models.MarketPriceIndex
	suppliers   map[string]*models.SupplierPerformance
	confidences []*models.PriceConfidenceScore

	reqLocks map[string]*sync.Mutex

	// failSelectionCreates makes the next N selection writes fail, for
	// exercising the persist-retry path
	failSelectionCreates int

	bidSeq int
}

func newMemStore() *memStore {
	return &memStore{
		auctions:  make(map[string]*models.LaneAuction),
		bids:      make(map[string]*models.AuctionBid),
		indexes:   make(map[string]*models.MarketPriceIndex),
		suppliers: make(map[string]*models.SupplierPerformance),
		reqLocks:  make(map[string]*sync.Mutex),
	}
}

func (m *memStore) Auctions() store.AuctionRepo { return memAuctionRepo{m} }
func (m *memStore) Bids() store.BidRepo { return memBidRepo{m} }
func (m *memStore) Selections() store.SelectionRepo { return memSelectionRepo{m} }
func (m *memStore) MarketIndexes() store.MarketIndexRepo { return memIndexRepo{m} }
func (m *memStore) Suppliers() store.SupplierPerformanceRepo { return memSupplierRepo{m} }
func (m *memStore) Confidences() store.ConfidenceRepo { return memConfidenceRepo{m} }

func (m *memStore) Tx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *memStore) WithRequirementLock(ctx context.Context, requirementID string, fn func() error) error {
	m.mu.Lock()
	lock, ok := m.reqLocks[requirementID]
	if !ok {
		lock = &sync.Mutex{}
		m.reqLocks[requirementID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

type memAuctionRepo struct{ m *memStore }

func (r memAuctionRepo) Create(ctx context.Context, auction *models.LaneAuction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *auction
	r.m.auctions[auction.ID] = &copied
	return nil
}

func (r memAuctionRepo) Get(ctx context.Context, id string) (*models.LaneAuction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	auction, ok := r.m.auctions[id]
	if !ok {
		return nil, apperrors.NewNotFound("auction", id)
	}
	copied := *auction
	return &copied, nil
}

func (r memAuctionRepo) GetForUpdate(ctx context.Context, id string) (*models.LaneAuction, error) {
	return r.Get(ctx, id)
}

func (r memAuctionRepo) Update(ctx context.Context, auction *models.LaneAuction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.auctions[auction.ID]; !ok {
		return apperrors.NewNotFound("auction", auction.ID)
	}
	copied := *auction
	r.m.auctions[auction.ID] = &copied
	return nil
}

func (r memAuctionRepo) List(ctx context.Context, filter store.AuctionFilter) ([]models.LaneAuction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.LaneAuction, 0)
	for _, a := range r.m.auctions {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.Country != "" && a.Country != filter.Country {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAuctionRepo) ExpiredOpenIDs(ctx context.Context, now time.Time) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []string
	for _, a := range r.m.auctions {
		if a.Status == models.AuctionStatusOpen && a.Expired(now) {
			ids = append(ids, a.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r memAuctionRepo) HasOpenForLane(ctx context.Context, category, country string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.auctions {
		if a.Status == models.AuctionStatusOpen && a.Category == category && a.Country == country {
			return true, nil
		}
	}
	return false, nil
}

type memBidRepo struct{ m *memStore }

func (r memBidRepo) Upsert(ctx context.Context, bidRecord *models.AuctionBid) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.bids {
		if existing.AuctionID == bidRecord.AuctionID && existing.SupplierID == bidRecord.SupplierID {
			existing.BidAmount = bidRecord.BidAmount
			existing.BidTier = bidRecord.BidTier
			existing.UpdatedAt = time.Now()
			*bidRecord = *existing
			return nil
		}
	}
	r.m.bidSeq++
	copied := *bidRecord
	copied.CreatedAt = time.Unix(int64(r.m.bidSeq), 0)
	r.m.bids[copied.ID] = &copied
	*bidRecord = copied
	return nil
}

func (r memBidRepo) ListByAuction(ctx context.Context, auctionID string) ([]models.AuctionBid, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.AuctionBid, 0)
	for _, b := range r.m.bids {
		if b.AuctionID == auctionID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].BidAmount.Cmp(out[j].BidAmount)
		if cmp != 0 {
			return cmp > 0
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memBidRepo) SetStatuses(ctx context.Context, auctionID string, accepted, outbid []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, id := range accepted {
		if b, ok := r.m.bids[id]; ok {
			b.BidStatus = models.BidStatusAccepted
		}
	}
	for _, id := range outbid {
		if b, ok := r.m.bids[id]; ok {
			b.BidStatus = models.BidStatusOutbid
		}
	}
	return nil
}

type memSelectionRepo struct{ m *memStore }

func (r memSelectionRepo) Create(ctx context.Context, logRecord *models.SelectionLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failSelectionCreates > 0 {
		r.m.failSelectionCreates--
		return errors.New("injected write failure")
	}
	copied := *logRecord
	copied.CreatedAt = time.Now()
	r.m.selections = append(r.m.selections, &copied)
	return nil
}

func (r memSelectionRepo) LatestByRequirement(ctx context.Context, requirementID string) (*models.SelectionLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := len(r.m.selections) - 1; i >= 0; i-- {
		if r.m.selections[i].RequirementID == requirementID {
			copied := *r.m.selections[i]
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("selection", requirementID)
}

func (r memSelectionRepo) List(ctx context.Context, filter store.SelectionFilter) ([]models.SelectionLog, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.SelectionLog, 0)
	for _, s := range r.m.selections {
		if filter.RequirementID != "" && s.RequirementID != filter.RequirementID {
			continue
		}
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		if filter.Mode != "" && s.SelectionMode != filter.Mode {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r memSelectionRepo) CategoryStats(ctx context.Context, category string, limit int) (*store.CategoryStats, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stats := &store.CategoryStats{SelectionCounts: make(map[string]int)}
	for i := len(r.m.selections) - 1; i >= 0 && stats.Runs < limit; i-- {
		s := r.m.selections[i]
		if s.Category != category {
			continue
		}
		stats.Runs++
		cost, _ := s.TotalLandedCost.Float64()
		stats.LandedCosts = append(stats.LandedCosts, cost)
		stats.SelectionCounts[s.SelectedSupplierID]++
	}
	return stats, nil
}

type memIndexRepo struct{ m *memStore }

func (r memIndexRepo) Get(ctx context.Context, category string) (*models.MarketPriceIndex, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	index, ok := r.m.indexes[category]
	if !ok {
		return nil, apperrors.NewNotFound("market index", category)
	}
	copied := *index
	return &copied, nil
}

func (r memIndexRepo) Upsert(ctx context.Context, index *models.MarketPriceIndex) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *index
	r.m.indexes[index.ProductCategory] = &copied
	return nil
}

type memSupplierRepo struct{ m *memStore }

func (r memSupplierRepo) Get(ctx context.Context, supplierID string) (*models.SupplierPerformance, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	perf, ok := r.m.suppliers[supplierID]
	if !ok {
		return nil, apperrors.NewNotFound("supplier performance", supplierID)
	}
	copied := *perf
	return &copied, nil
}

func (r memSupplierRepo) List(ctx context.Context, filter store.SupplierFilter) ([]models.SupplierPerformance, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.SupplierPerformance, 0)
	for _, p := range r.m.suppliers {
		if len(filter.SupplierIDs) > 0 {
			found := false
			for _, id := range filter.SupplierIDs {
				if id == p.SupplierID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}

func (r memSupplierRepo) Upsert(ctx context.Context, perf *models.SupplierPerformance) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *perf
	r.m.suppliers[perf.SupplierID] = &copied
	return nil
}

type memConfidenceRepo struct{ m *memStore }

func (r memConfidenceRepo) Create(ctx context.Context, score *models.PriceConfidenceScore) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *score
	copied.CreatedAt = time.Now()
	r.m.confidences = append(r.m.confidences, &copied)
	return nil
}

func (r memConfidenceRepo) LatestByRequirement(ctx context.Context, requirementID string) (*models.PriceConfidenceScore, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := len(r.m.confidences) - 1; i >= 0; i-- {
		if r.m.confidences[i].RequirementID == requirementID {
			copied := *r.m.confidences[i]
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFound("confidence score", requirementID)
}
