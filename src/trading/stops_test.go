package trading

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradeagent/src/model"
)

func tickAt(symbol string, close string) model.Tick {
	c := decimal.RequireFromString(close)
	return model.Tick{
		Symbol: symbol,
		Open:   c, High: c, Low: c, Close: c,
		Volume:    decimal.NewFromInt(10),
		Timestamp: time.Now(),
	}
}

func TestTrailingStopRatchetSequence(t *testing.T) {
	broker := &fakeBroker{}
	r := newRig(testConfig(), broker)
	ctx := context.Background()
	r.positions.held["AAPL"] = 10

	// Entry at 100 with a 5% stop-loss opens the stop at 95.
	require.NoError(t, r.stops.PlaceInitial(ctx, "AAPL", 10, decimal.NewFromInt(100)))
	row := r.stopRows.rows["AAPL"]
	require.NotNil(t, row)
	require.True(t, row.CurrentStopPrice.Equal(decimal.NewFromInt(95)), "initial stop, got %s", row.CurrentStopPrice)
	firstOrder := row.StopOrderID

	// 102 with a 3% trail lifts the stop to 98.94.
	r.stops.OnTick(ctx, tickAt("AAPL", "102"))
	row = r.stopRows.rows["AAPL"]
	require.True(t, row.CurrentStopPrice.Equal(decimal.RequireFromString("98.94")), "got %s", row.CurrentStopPrice)
	require.NotEqual(t, firstOrder, row.StopOrderID, "replacement carries a fresh order id")
	require.Contains(t, broker.canceled, firstOrder)

	// 105 lifts it again to 101.85.
	r.stops.OnTick(ctx, tickAt("AAPL", "105"))
	row = r.stopRows.rows["AAPL"]
	require.True(t, row.CurrentStopPrice.Equal(decimal.RequireFromString("101.85")), "got %s", row.CurrentStopPrice)

	// A pullback to 101 computes 97.97, below the working stop: no change.
	r.stops.OnTick(ctx, tickAt("AAPL", "101"))
	row = r.stopRows.rows["AAPL"]
	require.True(t, row.CurrentStopPrice.Equal(decimal.RequireFromString("101.85")), "stop never moves down, got %s", row.CurrentStopPrice)

	require.Len(t, broker.stopOrders(), 3)
	require.Len(t, broker.canceled, 2)
}

func TestRatchetAbortsWhenCancelFails(t *testing.T) {
	broker := &fakeBroker{}
	r := newRig(testConfig(), broker)
	ctx := context.Background()
	r.positions.held["AAPL"] = 10

	require.NoError(t, r.stops.PlaceInitial(ctx, "AAPL", 10, decimal.NewFromInt(100)))
	broker.failCancel = true

	r.stops.OnTick(ctx, tickAt("AAPL", "102"))

	// The working stop at the venue stays authoritative.
	row := r.stopRows.rows["AAPL"]
	require.True(t, row.CurrentStopPrice.Equal(decimal.NewFromInt(95)))
	require.Len(t, broker.stopOrders(), 1)
}

func TestRatchetAlertsWhenReplacementFails(t *testing.T) {
	broker := &fakeBroker{}
	r := newRig(testConfig(), broker)
	ctx := context.Background()
	r.positions.held["AAPL"] = 10

	require.NoError(t, r.stops.PlaceInitial(ctx, "AAPL", 10, decimal.NewFromInt(100)))
	broker.failStop = true

	r.stops.OnTick(ctx, tickAt("AAPL", "102"))

	require.NotEmpty(t, r.notifier.messages)
	require.Contains(t, r.notifier.messages[len(r.notifier.messages)-1], "UNPROTECTED")
}

func TestPlaceInitialFailureEscalates(t *testing.T) {
	broker := &fakeBroker{failStop: true}
	r := newRig(testConfig(), broker)

	err := r.stops.PlaceInitial(context.Background(), "AAPL", 10, decimal.NewFromInt(100))
	require.Error(t, err)
	require.Empty(t, r.stopRows.rows)
	require.NotEmpty(t, r.notifier.messages)
}

func TestPlaceInitialAddsTakeProfitWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.TakeProfitPercent = 6
	broker := &fakeBroker{}
	r := newRig(cfg, broker)

	require.NoError(t, r.stops.PlaceInitial(context.Background(), "AAPL", 10, decimal.NewFromInt(100)))

	require.Len(t, broker.placed, 2)
	tp := broker.placed[1]
	require.Equal(t, "limit", tp.kind)
	require.True(t, tp.price.Equal(decimal.NewFromInt(106)), "got %s", tp.price)
	require.Equal(t, tp.orderID, r.stopRows.rows["AAPL"].TakeProfitOrderID)
}

func TestOnTickWithoutStopStateIsNoop(t *testing.T) {
	broker := &fakeBroker{}
	r := newRig(testConfig(), broker)

	r.stops.OnTick(context.Background(), tickAt("AAPL", "500"))
	require.Empty(t, broker.placed)
}

func TestClearCancelsBothWorkingOrders(t *testing.T) {
	broker := &fakeBroker{}
	r := newRig(testConfig(), broker)
	r.stopRows.rows["AAPL"] = &model.TrailingStop{
		Symbol:            "AAPL",
		StopOrderID:       "ord-stop",
		TakeProfitOrderID: "ord-tp",
	}

	require.NoError(t, r.stops.Clear(context.Background(), "AAPL"))
	require.ElementsMatch(t, []string{"ord-stop", "ord-tp"}, broker.canceled)
	require.Empty(t, r.stopRows.rows)
}
