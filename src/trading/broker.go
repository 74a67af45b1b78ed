package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"tradeagent/src/connectors"
)

// Broker is the slice of the venue REST contract the trading core needs.
// Satisfied by *connectors.Client.
type Broker interface {
	PlaceMarketOrder(ctx context.Context, symbol string, qty int64, side string) (string, error)
	PlaceStopOrder(ctx context.Context, symbol string, qty int64, stopPrice decimal.Decimal, side string) (string, error)
	PlaceLimitOrder(ctx context.Context, symbol string, qty int64, side string, limitPrice decimal.Decimal) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*connectors.OrderStatus, error)
	GetAccountCash(ctx context.Context) (decimal.Decimal, error)
}
