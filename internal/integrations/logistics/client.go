/**
 * @description
 * Client for the logistics-quoting collaborator.
 * Estimates delivery cost for a quantity of goods from a supplier to the
 * requirement's destination.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 */

package logistics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procurelane/backend/internal/config"
	"github.com/shopspring/decimal"
)

const requestTimeout = 10 * time.Second

// QuoteRequest asks for a delivery cost estimate
type QuoteRequest struct {
	Category           string          `json:"category"`
	Quantity           decimal.Decimal `json:"quantity"`
	Unit               string          `json:"unit"`
	SupplierID         string          `json:"supplier_id"`
	DestinationCountry string          `json:"destination_country"`
}

// QuoteResponse carries the estimated cost
type QuoteResponse struct {
	Cost decimal.Decimal `json:"cost"`
}

// Client talks to the logistics collaborator over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a logistics client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Collaborators.LogisticsBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Quote estimates the logistics cost for one candidate supplier
func (c *Client) Quote(ctx context.Context, quoteReq QuoteRequest) (decimal.Decimal, error) {
	payload, err := json.Marshal(quoteReq)
	if err != nil {
		return decimal.Zero, err
	}

	url := fmt.Sprintf("%s/quotes", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("logistics quote failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("logistics returned status %d: %s", resp.StatusCode, string(body))
	}

	var quote QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return decimal.Zero, err
	}
	return quote.Cost, nil
}
