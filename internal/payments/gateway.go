package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayClient posts transfers to the external payment gateway. Calls are
// bounded by the client timeout; retries are the payout worker's concern.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transferRequest struct {
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// Transfer sends amount to the user's payout destination. The reference is
// stable per escrow transaction and direction so the gateway can dedupe on
// its side as well.
func (c *GatewayClient) Transfer(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) error {
	body, err := json.Marshal(transferRequest{UserID: userID, Amount: amount, Reference: reference})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway transfer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway transfer: unexpected status %d", resp.StatusCode)
	}
	return nil
}
