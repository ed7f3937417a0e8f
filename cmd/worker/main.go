/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background tasks:
 * 1. Sweeping expired lane auctions through the same award path as a manual
 *    close.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/services
 *
 * @notes
 * - The sweep cadence is configuration; a missed tick is harmless because the
 *   sweep is idempotent.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/procurelane/backend/internal/config"
	"github.com/procurelane/backend/internal/db"
	"github.com/procurelane/backend/internal/logger"
	"github.com/procurelane/backend/internal/services"
	"github.com/procurelane/backend/internal/store/postgres"
)

func main() {
	logger.Info("🔥 Starting ProcureLane Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	auctionService := services.NewAuctionService(postgres.New(pgDB), redisClient)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Sweep Loop
	go func() {
		ticker := time.NewTicker(cfg.Engine.SweepInterval)
		defer ticker.Stop()

		// Initial sweep
		sweep(ctx, auctionService)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(ctx, auctionService)
			}
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	time.Sleep(1 * time.Second) // Give in-flight closes time to finish
	logger.Info("Worker exited.")
}

// sweep closes every open auction whose bidding window has passed
func sweep(ctx context.Context, svc *services.AuctionService) {
	closed, err := svc.SweepExpired(ctx)
	if err != nil {
		logger.Error("Auction sweep failed: %v", err)
		return
	}
	if closed > 0 {
		logger.Info("🔨 Auction sweep closed %d auction(s)", closed)
	}
}
