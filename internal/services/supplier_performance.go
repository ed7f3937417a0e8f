/**
 * @description
 * Read-mostly tracker for supplier delivery/quality history.
 * Serves derived metrics Cache -> DB with neutral defaults for suppliers that
 * have no history on file. Counters are written only through the ingestion
 * endpoint fed by external order-outcome events.
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

// SupplierMetrics are the derived signals a selection run consumes
type SupplierMetrics struct {
	DeliveryProbability float64
	QualityRisk         float64
	// LowConfidence marks metrics backed by neutral defaults instead of history
	LowConfidence bool
}

// SupplierPerformanceTracker resolves supplier metrics for the engines
type SupplierPerformanceTracker struct {
	Store store.Store
	Redis *redis.Client

	CacheTTL time.Duration
}

// NewSupplierPerformanceTracker wires the tracker from configuration
func NewSupplierPerformanceTracker(st store.Store, rdb *redis.Client, cfg *config.Config) *SupplierPerformanceTracker {
	return &SupplierPerformanceTracker{
		Store:    st,
		Redis:    rdb,
		CacheTTL: cfg.Engine.SnapshotCacheTTL,
	}
}

func supplierPerfCacheKey(supplierID string) string {
	return fmt.Sprintf("supplier_perf:%s", supplierID)
}

// Metrics returns the derived metrics for one supplier. A missing record
// yields the neutral defaults flagged low-confidence, never an error.
func (t *SupplierPerformanceTracker) Metrics(ctx context.Context, supplierID string) SupplierMetrics {
	perf := t.lookup(ctx, supplierID)
	if perf == nil {
		return SupplierMetrics{
			DeliveryProbability: models.NeutralDeliveryProbability,
			QualityRisk:         models.NeutralQualityRisk,
			LowConfidence:       true,
		}
	}
	return SupplierMetrics{
		DeliveryProbability: perf.DeliverySuccessProbability(),
		QualityRisk:         perf.QualityRiskScore,
	}
}

func (t *SupplierPerformanceTracker) lookup(ctx context.Context, supplierID string) *models.SupplierPerformance {
	// 1. Try Redis
	if t.Redis != nil {
		val, err := t.Redis.Get(ctx, supplierPerfCacheKey(supplierID)).Result()
		if err == nil {
			var perf models.SupplierPerformance
			if err := json.Unmarshal([]byte(val), &perf); err == nil {
				return &perf
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Error("supplier performance cache read failed for %s: %v", supplierID, err)
		}
	}

	// 2. Fallback to DB
	perf, err := t.Store.Suppliers().Get(ctx, supplierID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			logger.Error("supplier performance lookup failed for %s: %v", supplierID, err)
		}
		return nil
	}

	t.fillCache(ctx, perf)
	return perf
}

// Get returns the raw counters for one supplier
func (t *SupplierPerformanceTracker) Get(ctx context.Context, supplierID string) (*models.SupplierPerformance, error) {
	return t.Store.Suppliers().Get(ctx, supplierID)
}

// List returns raw counters, filtered
func (t *SupplierPerformanceTracker) List(ctx context.Context, filter store.SupplierFilter) ([]models.SupplierPerformance, error) {
	return t.Store.Suppliers().List(ctx, filter)
}

// Ingest upserts refreshed counters, recomputes derived fields, and updates
// the cache snapshot. Called only from the order-outcome ingestion endpoint.
func (t *SupplierPerformanceTracker) Ingest(ctx context.Context, perf *models.SupplierPerformance) error {
	if perf.SupplierID == "" {
		return apperrors.NewValidation("supplier_id", "must not be empty")
	}
	if perf.TotalOrders < 0 || perf.SuccessfulDeliveries < 0 || perf.QualityRejections < 0 || perf.QualityComplaints < 0 {
		return apperrors.NewValidation("counters", "must not be negative")
	}
	if perf.SuccessfulDeliveries > perf.TotalOrders {
		return apperrors.NewValidation("successful_deliveries", "cannot exceed total_orders")
	}

	perf.RecomputeQualityRisk()

	if err := t.Store.Suppliers().Upsert(ctx, perf); err != nil {
		return err
	}

	t.fillCache(ctx, perf)
	return nil
}

func (t *SupplierPerformanceTracker) fillCache(ctx context.Context, perf *models.SupplierPerformance) {
	if t.Redis == nil {
		return
	}
	data, err := json.Marshal(perf)
	if err != nil {
		logger.Error("failed to marshal supplier performance for cache: %v", err)
		return
	}
	if err := t.Redis.Set(ctx, supplierPerfCacheKey(perf.SupplierID), data, t.CacheTTL).Err(); err != nil {
		logger.Error("failed to set supplier performance cache: %v", err)
	}
}
