// REST client for the brokerage venue: order placement and cancellation,
// order status, account cash and the market clock.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// ErrOrderRejected is returned when the venue refuses an order submission
// outright. Callers must not poll for a fill after this.
var ErrOrderRejected = errors.New("order rejected by venue")

const (
	OrderStatusFilled   = "filled"
	OrderStatusCanceled = "canceled"
)

// OrderStatus mirrors the venue's order state for fill polling.
type OrderStatus struct {
	OrderID        string          `json:"id"`
	Status         string          `json:"status"`
	FilledQty      decimal.Decimal `json:"filled_qty"`
	FilledAvgPrice decimal.Decimal `json:"filled_avg_price"`
}

type orderResponse struct {
	ID string `json:"id"`
}

type accountResponse struct {
	Cash decimal.Decimal `json:"cash"`
}

type clockResponse struct {
	IsOpen   bool      `json:"is_open"`
	NextOpen time.Time `json:"next_open"`
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           int64  `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	StopPrice     string `json:"stop_price,omitempty"`
	LimitPrice    string `json:"limit_price,omitempty"`
	ClientOrderID string `json:"client_order_id"`
}

// Client is the authenticated REST client for the brokerage venue.
type Client struct {
	http *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return (code >= 500 && code <= 599) || code == 429 || code == 408
}

func NewClient(apiKey, apiSecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = GetConfig().BaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp).
		SetHeader("APCA-API-KEY-ID", apiKey).
		SetHeader("APCA-API-SECRET-KEY", apiSecret)

	return &Client{http: httpClient}
}

func (c *Client) submitOrder(ctx context.Context, req orderRequest) (string, error) {
	var out orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v2/orders")
	if err != nil {
		return "", fmt.Errorf("order submission failed: %w", err)
	}
	if resp.IsError() {
		logger.WithFields(logger.Fields{
			"symbol": req.Symbol,
			"side":   req.Side,
			"type":   req.Type,
			"status": resp.StatusCode(),
			"body":   resp.String(),
		}).Error("venue rejected order")
		return "", fmt.Errorf("%w: status %d", ErrOrderRejected, resp.StatusCode())
	}
	return out.ID, nil
}

// PlaceMarketOrder submits a day market order and returns the venue order id.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, qty int64, side string) (string, error) {
	orderID, err := c.submitOrder(ctx, orderRequest{
		Symbol:        symbol,
		Qty:           qty,
		Side:          side,
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	logger.WithFields(logger.Fields{
		"symbol":   symbol,
		"side":     side,
		"qty":      qty,
		"order_id": orderID,
	}).Info("market order placed")
	return orderID, nil
}

// PlaceStopOrder submits a protective stop order.
func (c *Client) PlaceStopOrder(ctx context.Context, symbol string, qty int64, stopPrice decimal.Decimal, side string) (string, error) {
	orderID, err := c.submitOrder(ctx, orderRequest{
		Symbol:        symbol,
		Qty:           qty,
		Side:          side,
		Type:          "stop",
		TimeInForce:   "day",
		StopPrice:     stopPrice.StringFixed(2),
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	logger.WithFields(logger.Fields{
		"symbol":     symbol,
		"side":       side,
		"qty":        qty,
		"stop_price": stopPrice,
		"order_id":   orderID,
	}).Info("stop order placed")
	return orderID, nil
}

// PlaceLimitOrder submits a limit order (used for take-profit exits).
func (c *Client) PlaceLimitOrder(ctx context.Context, symbol string, qty int64, side string, limitPrice decimal.Decimal) (string, error) {
	orderID, err := c.submitOrder(ctx, orderRequest{
		Symbol:        symbol,
		Qty:           qty,
		Side:          side,
		Type:          "limit",
		TimeInForce:   "day",
		LimitPrice:    limitPrice.StringFixed(2),
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	logger.WithFields(logger.Fields{
		"symbol":      symbol,
		"side":        side,
		"qty":         qty,
		"limit_price": limitPrice,
		"order_id":    orderID,
	}).Info("limit order placed")
	return orderID, nil
}

// CancelOrder cancels an outstanding order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/v2/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("cancel order %s failed: %w", orderID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("cancel order %s: venue returned status %d", orderID, resp.StatusCode())
	}
	return nil
}

// GetOrderStatus fetches the current state of an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var out OrderStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/orders/" + orderID)
	if err != nil {
		return nil, fmt.Errorf("order status %s failed: %w", orderID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("order status %s: venue returned status %d", orderID, resp.StatusCode())
	}
	out.OrderID = orderID
	return &out, nil
}

// GetAccountCash returns the account's available cash.
func (c *Client) GetAccountCash(ctx context.Context) (decimal.Decimal, error) {
	var out accountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/account")
	if err != nil {
		return decimal.Zero, fmt.Errorf("account fetch failed: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("account fetch: venue returned status %d", resp.StatusCode())
	}
	return out.Cash, nil
}

// IsMarketClosed reports whether the market is currently closed.
func (c *Client) IsMarketClosed(ctx context.Context) (bool, error) {
	clock, err := c.getClock(ctx)
	if err != nil {
		return false, err
	}
	return !clock.IsOpen, nil
}

// GetNextMarketOpen returns the next market-open timestamp.
func (c *Client) GetNextMarketOpen(ctx context.Context) (time.Time, error) {
	clock, err := c.getClock(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return clock.NextOpen, nil
}

func (c *Client) getClock(ctx context.Context) (*clockResponse, error) {
	var out clockResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v2/clock")
	if err != nil {
		return nil, fmt.Errorf("clock fetch failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clock fetch: venue returned status %d", resp.StatusCode())
	}
	return &out, nil
}
