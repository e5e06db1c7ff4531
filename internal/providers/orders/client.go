package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pocketkart/pocketbot/internal/config"
	"github.com/pocketkart/pocketbot/internal/core"
)

// Client resolves a shopper's latest order from the storefront orders API.
type Client struct {
	client  *http.Client
	apiURL  string
	apiKey  string
	timeout time.Duration
}

func NewClient(cfg *config.OrdersConfig) *Client {
	return &Client{
		client:  &http.Client{Timeout: 60 * time.Second},
		apiURL:  cfg.APIURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

func (c *Client) Lookup(ctx context.Context, userID string) (core.OrderStatus, error) {
	if userID == "" {
		return core.OrderStatus{}, core.ErrNoRecentOrder
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := fmt.Sprintf("%s/latest?userId=%s", c.apiURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.OrderStatus{}, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return core.OrderStatus{}, fmt.Errorf("order lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.OrderStatus{}, core.ErrNoRecentOrder
	}
	if resp.StatusCode != http.StatusOK {
		return core.OrderStatus{}, fmt.Errorf("order lookup failed: %s", resp.Status)
	}

	var status core.OrderStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return core.OrderStatus{}, fmt.Errorf("decode order status: %w", err)
	}
	return status, nil
}
