/**
 * @description
 * Client for the RFQ subsystem.
 * Supplies requirement data (category, quantity, unit, destination) and the
 * requirement-level bids submitted through the supplier-facing bidding UI.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 */

package rfq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procurelane/backend/internal/apperrors"
	"github.com/procurelane/backend/internal/config"
	"github.com/shopspring/decimal"
)

const requestTimeout = 10 * time.Second

// Requirement is the demand record a selection run works on
type Requirement struct {
	ID                 string          `json:"id"`
	Category           string          `json:"category"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
	DestinationCountry string          `json:"destination_country"`
}

// SupplierBid is one supplier's quoted rate for a requirement
type SupplierBid struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"supplier_id"`
	Rate       decimal.Decimal `json:"rate"` // per unit
	HSNCode    string          `json:"hsn_code,omitempty"`
}

// Client talks to the RFQ subsystem over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an RFQ client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Collaborators.RFQBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// GetRequirement fetches one requirement by id
func (c *Client) GetRequirement(ctx context.Context, requirementID string) (*Requirement, error) {
	var requirement Requirement
	url := fmt.Sprintf("%s/requirements/%s", c.baseURL, requirementID)
	if err := c.getJSON(ctx, url, &requirement); err != nil {
		return nil, err
	}
	return &requirement, nil
}

// ListBids fetches the bids attached to a requirement
func (c *Client) ListBids(ctx context.Context, requirementID string) ([]SupplierBid, error) {
	var bids []SupplierBid
	url := fmt.Sprintf("%s/requirements/%s/bids", c.baseURL, requirementID)
	if err := c.getJSON(ctx, url, &bids); err != nil {
		return nil, err
	}
	return bids, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rfq request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFound("requirement", url)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rfq returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
