/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/procurelane/backend/internal/api/handlers"
	"github.com/procurelane/backend/internal/api/middleware"
	"github.com/procurelane/backend/internal/config"
	"github.com/procurelane/backend/internal/integrations/inventory"
	"github.com/procurelane/backend/internal/integrations/logistics"
	"github.com/procurelane/backend/internal/integrations/rfq"
	"github.com/procurelane/backend/internal/services"
	"github.com/procurelane/backend/internal/store/postgres"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Middleware
	middleware.InitAuthMiddleware(cfg)

	// 2. Initialize Services
	st := postgres.New(db)
	indexStore := services.NewMarketIndexStore(st, rdb, cfg)
	performanceTracker := services.NewSupplierPerformanceTracker(st, rdb, cfg)
	auctionService := services.NewAuctionService(st, rdb)
	confidenceService := services.NewConfidenceService(st, indexStore, cfg)
	selectionService := services.NewSelectionService(
		st,
		rfq.NewClient(cfg),
		logistics.NewClient(cfg),
		inventory.NewClient(cfg),
		performanceTracker,
		confidenceService,
		cfg,
	)

	// 3. Initialize Handlers
	auctionHandler := handlers.NewAuctionHandler(auctionService)
	selectionHandler := handlers.NewSelectionHandler(selectionService)
	confidenceHandler := handlers.NewConfidenceHandler(confidenceService)
	ingestHandler := handlers.NewIngestHandler(indexStore, performanceTracker)

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auction Routes
	auctions := v1.Group("/auctions")
	auctions.Get("/", auctionHandler.ListAuctions)
	auctions.Get("/stream", auctionHandler.StreamEvents)
	auctions.Get("/:id", auctionHandler.GetAuction)
	auctions.Post("/:id/bids", auctionHandler.SubmitBid)
	auctions.Post("/", middleware.AdminProtected(), auctionHandler.CreateAuction)
	auctions.Post("/:id/close", middleware.AdminProtected(), auctionHandler.CloseAuction)
	auctions.Post("/:id/cancel", middleware.AdminProtected(), auctionHandler.CancelAuction)
	auctions.Get("/:id/bids", middleware.AdminProtected(), auctionHandler.ListBids)

	// Selection Routes (admin)
	selections := v1.Group("/selections", middleware.AdminProtected())
	selections.Post("/", selectionHandler.RunSelection)
	selections.Get("/", selectionHandler.ListSelections)

	// Requirement Routes
	requirements := v1.Group("/requirements")
	requirements.Get("/:id/confidence", confidenceHandler.GetConfidence)
	requirements.Get("/:id/confidence/breakdown", middleware.AdminProtected(), confidenceHandler.GetBreakdown)
	requirements.Get("/:id/selection", middleware.AdminProtected(), selectionHandler.GetLatest)

	// Supplier Performance Routes (admin)
	suppliers := v1.Group("/suppliers", middleware.AdminProtected())
	suppliers.Get("/performance", ingestHandler.ListSupplierPerformance)
	suppliers.Get("/:id/performance", ingestHandler.GetSupplierPerformance)

	// Ingestion Routes (batch jobs)
	internal := v1.Group("/internal", middleware.JobProtected())
	internal.Put("/market-index", ingestHandler.PutMarketIndex)
	internal.Put("/supplier-performance", ingestHandler.PutSupplierPerformance)
}
