/**
 * @description
 * GORM-backed implementation of the store interfaces.
 * Owns transactions, per-requirement advisory locks, and transient-error
 * classification for the retry-once policy.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgx/v5/pgconn: Postgres error codes
 */

package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/procurelane/backend/internal/logger"
	"github.com/procurelane/backend/internal/store"
	"gorm.io/gorm"
)

// Postgres implements store.Store on a *gorm.DB
type Postgres struct {
	db *gorm.DB
}

// New wraps a GORM connection in the store implementation
func New(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Auctions() store.AuctionRepo { return &auctionRepo{db: p.db} }
func (p *Postgres) Bids() store.BidRepo { return &bidRepo{db: p.db} }
func (p *Postgres) Selections() store.SelectionRepo { return &selectionRepo{db: p.db} }
func (p *Postgres) MarketIndexes() store.MarketIndexRepo { return &marketIndexRepo{db: p.db} }
func (p *Postgres) Suppliers() store.SupplierPerformanceRepo { return &supplierRepo{db: p.db} }
func (p *Postgres) Confidences() store.ConfidenceRepo { return &confidenceRepo{db: p.db} }

// Tx runs fn inside a database transaction. Repositories obtained from the
// Store passed to fn share that transaction.
func (p *Postgres) Tx(ctx context.Context, fn func(store.Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx})
	})
}

// WithRequirementLock serializes selection runs for one requirement via a
// session-scoped advisory lock. The connection is pinned so lock and unlock
// hit the same session.
func (p *Postgres) WithRequirementLock(ctx context.Context, requirementID string, fn func() error) error {
	key := requirementLockKey(requirementID)

	return p.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		const maxAttempts = 30

		locked := false
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := conn.Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&locked).Error; err != nil {
				return err
			}
			if locked {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			backoff := time.Duration(100+rand.Intn(150)) * time.Millisecond
			time.Sleep(backoff)
		}
		if !locked {
			return fmt.Errorf("timeout acquiring selection lock for requirement %s", requirementID)
		}

		defer func() {
			if err := conn.Exec("SELECT pg_advisory_unlock(?)", key).Error; err != nil {
				logger.Error("failed to release selection lock for requirement %s: %v", requirementID, err)
			}
		}()

		return fn()
	})
}

// requirementLockKey maps a requirement id onto the advisory lock keyspace
func requirementLockKey(requirementID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(requirementID))
	return int64(h.Sum64())
}

// IsTransient reports whether err is a serialization/deadlock failure worth
// exactly one retry.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
