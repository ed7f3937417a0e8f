/**
 * @description
 * Configuration loader for the ProcureLane matching engine.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL) are missing.
 * - Engine tunables (risk thresholds, confidence weights) are configuration, not
 *   hard-coded constants, so operators can adjust them without a redeploy.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	DB            DBConfig
	Redis         RedisConfig
	Engine        EngineConfig
	Collaborators CollaboratorsConfig
	Auth          AuthConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// EngineConfig holds the tunables of the matching and pricing engine.
type EngineConfig struct {
	// Mode A fallback thresholds
	QualityRiskCeiling float64
	DeliveryProbFloor  float64
	// Confidence score weights (must sum to 1.0)
	WeightPricePosition   float64
	WeightMarketStability float64
	WeightCompetition     float64
	// Bid count at which the competition signal saturates
	BidSaturationCount int
	// Market index snapshots older than this degrade scoring instead of failing it
	IndexFreshnessWindow time.Duration
	// Cache TTL for market index / supplier performance snapshots
	SnapshotCacheTTL time.Duration
	// Worker sweep cadence for expired auctions
	SweepInterval time.Duration
}

// CollaboratorsConfig holds base URLs of the external subsystems we consume.
type CollaboratorsConfig struct {
	RFQBaseURL       string
	LogisticsBaseURL string
	InventoryBaseURL string
}

// AuthConfig holds shared secrets for the non-buyer surfaces.
type AuthConfig struct {
	AdminToken string // admin endpoints: close auction, logs, breakdowns
	JobSecret  string // ingestion endpoints hit by the aggregation jobs
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Engine: EngineConfig{
			QualityRiskCeiling:    getEnvAsFloat("ENGINE_QUALITY_RISK_CEILING", 0.5),
			DeliveryProbFloor:     getEnvAsFloat("ENGINE_DELIVERY_PROB_FLOOR", 0.6),
			WeightPricePosition:   getEnvAsFloat("ENGINE_WEIGHT_PRICE_POSITION", 0.40),
			WeightMarketStability: getEnvAsFloat("ENGINE_WEIGHT_MARKET_STABILITY", 0.35),
			WeightCompetition:     getEnvAsFloat("ENGINE_WEIGHT_COMPETITION", 0.25),
			BidSaturationCount:    getEnvAsInt("ENGINE_BID_SATURATION_COUNT", 5),
			IndexFreshnessWindow:  getEnvAsDuration("ENGINE_INDEX_FRESHNESS_WINDOW", 24*time.Hour),
			SnapshotCacheTTL:      getEnvAsDuration("ENGINE_SNAPSHOT_CACHE_TTL", 5*time.Minute),
			SweepInterval:         getEnvAsDuration("ENGINE_SWEEP_INTERVAL", time.Minute),
		},
		Collaborators: CollaboratorsConfig{
			RFQBaseURL:       getEnv("RFQ_BASE_URL", "http://localhost:8081"),
			LogisticsBaseURL: getEnv("LOGISTICS_BASE_URL", "http://localhost:8082"),
			InventoryBaseURL: getEnv("INVENTORY_BASE_URL", "http://localhost:8083"),
		},
		Auth: AuthConfig{
			AdminToken: getEnv("ADMIN_API_TOKEN", ""),
			JobSecret:  getEnv("JOB_INGEST_SECRET", ""),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables and internally consistent tunables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	sum := cfg.Engine.WeightPricePosition + cfg.Engine.WeightMarketStability + cfg.Engine.WeightCompetition
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("confidence weights must sum to 1.0, got %.3f", sum)
	}
	if cfg.Engine.QualityRiskCeiling <= 0 || cfg.Engine.QualityRiskCeiling > 1 {
		return fmt.Errorf("ENGINE_QUALITY_RISK_CEILING must be in (0,1]")
	}
	if cfg.Engine.DeliveryProbFloor < 0 || cfg.Engine.DeliveryProbFloor >= 1 {
		return fmt.Errorf("ENGINE_DELIVERY_PROB_FLOOR must be in [0,1)")
	}
	if cfg.Auth.AdminToken == "" && cfg.Server.Env != "test" {
		// Warning: strictly required for admin endpoints
		fmt.Println("Warning: ADMIN_API_TOKEN is missing. Admin endpoints will reject all callers.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as float64
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as duration (e.g. "30s", "24h")
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
