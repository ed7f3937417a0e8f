/**
 * @description
 * Client for the inventory/capacity collaborator.
 * Supplies the current capacity snapshot used by auto-assign selection:
 * which suppliers can serve a category, how much, and from how far away.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 */

package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/procurelane/backend/internal/config"
	"github.com/shopspring/decimal"
)

const requestTimeout = 10 * time.Second

// SupplierCapacity is one supplier's standing in the capacity snapshot
type SupplierCapacity struct {
	SupplierID   string          `json:"supplier_id"`
	AvailableQty decimal.Decimal `json:"available_qty"`
	UnitRate     decimal.Decimal `json:"unit_rate"` // catalog rate used when no competitive bid exists
	DistanceKM   float64         `json:"distance_km"`
}

// Client talks to the inventory collaborator over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an inventory client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Collaborators.InventoryBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// CapacitySnapshot lists suppliers with available capacity for a category,
// scoped to a destination country.
func (c *Client) CapacitySnapshot(ctx context.Context, category, country string) ([]SupplierCapacity, error) {
	endpoint := fmt.Sprintf("%s/capacity?category=%s&country=%s",
		c.baseURL, url.QueryEscape(category), url.QueryEscape(country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory snapshot failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inventory returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapshot []SupplierCapacity
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
