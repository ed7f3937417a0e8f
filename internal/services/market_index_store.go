/**
 * @description
 * Read-mostly store for per-category market price statistics.
 * Serves snapshots Cache -> DB; the only write path is the ingestion endpoint
 * fed by the external aggregation job. The engines never write here.
 *
 * @dependencies
 * - backend/internal/store
 * - github.com/redis/go-redis/v9
 */

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/config"
	"github.com/procurelane/backend/internal/logger"
	"github.com/procurelane/backend/internal/models"
	"github.com/procurelane/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

// MarketIndexStore resolves market index snapshots for the engines
type MarketIndexStore struct {
	Store store.Store
	Redis *redis.Client

	CacheTTL        time.Duration
	FreshnessWindow time.Duration

	// Now is swappable for tests
	Now func() time.Time
}

// NewMarketIndexStore wires the store from configuration
func NewMarketIndexStore(st store.Store, rdb *redis.Client, cfg *config.Config) *MarketIndexStore {
	return &MarketIndexStore{
		Store:           st,
		Redis:           rdb,
		CacheTTL:        cfg.Engine.SnapshotCacheTTL,
		FreshnessWindow: cfg.Engine.IndexFreshnessWindow,
		Now:             time.Now,
	}
}

func marketIndexCacheKey(category string) string {
	return fmt.Sprintf("market_index:%s", category)
}

// Snapshot returns the category's index and whether it is usable for scoring.
// A missing or stale index yields usable=false, never an error: the scorer
// degrades rather than failing.
func (s *MarketIndexStore) Snapshot(ctx context.Context, category string) (*models.MarketPriceIndex, bool) {
	index := s.lookup(ctx, category)
	if index == nil {
		return nil, false
	}
	if index.Stale(s.Now(), s.FreshnessWindow) {
		return index, false
	}
	return index, true
}

func (s *MarketIndexStore) lookup(ctx context.Context, category string) *models.MarketPriceIndex {
	// 1. Try Redis
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, marketIndexCacheKey(category)).Result()
		if err == nil {
			var index models.MarketPriceIndex
			if err := json.Unmarshal([]byte(val), &index); err == nil {
				return &index
			}
			// If unmarshal fails, fall through to DB
		} else if !errors.Is(err, redis.Nil) {
			logger.Error("market index cache read failed for %s: %v", category, err)
		}
	}

	// 2. Fallback to DB
	index, err := s.Store.MarketIndexes().Get(ctx, category)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			logger.Error("market index lookup failed for %s: %v", category, err)
		}
		return nil
	}

	s.fillCache(ctx, index)
	return index
}

// Ingest upserts a refreshed index row and updates the cache snapshot.
// Called only from the aggregation-job ingestion endpoint.
func (s *MarketIndexStore) Ingest(ctx context.Context, index *models.MarketPriceIndex) error {
	if index.ProductCategory == "" {
		return apperrors.NewValidation("product_category", "must not be empty")
	}
	if index.VolatilityIndex < 0 || index.VolatilityIndex > 1 {
		return apperrors.NewValidation("volatility_index", "must be in [0,1]")
	}
	if index.LastUpdated.IsZero() {
		index.LastUpdated = s.Now()
	}

	if err := s.Store.MarketIndexes().Upsert(ctx, index); err != nil {
		return err
	}

	s.fillCache(ctx, index)
	return nil
}

func (s *MarketIndexStore) fillCache(ctx context.Context, index *models.MarketPriceIndex) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(index)
	if err != nil {
		logger.Error("failed to marshal market index for cache: %v", err)
		return
	}
	if err := s.Redis.Set(ctx, marketIndexCacheKey(index.ProductCategory), data, s.CacheTTL).Err(); err != nil {
		logger.Error("failed to set market index cache: %v", err)
	}
}
