package trading

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradeagent/src/model"
)

func tradeRow(side string, qty int64, price int64, minute int) model.TradeRecord {
	return model.TradeRecord{
		Symbol:    "AAPL",
		Side:      side,
		Quantity:  qty,
		Price:     decimal.NewFromInt(price),
		Timestamp: time.Date(2025, 6, 2, 14, minute, 0, 0, time.UTC),
	}
}

func TestFIFOMatchingAcrossLots(t *testing.T) {
	r := newRig(testConfig(), &fakeBroker{})
	r.trades.rows = []model.TradeRecord{
		tradeRow(model.TradeSideBuy, 10, 10, 0),
		tradeRow(model.TradeSideBuy, 10, 12, 1),
		tradeRow(model.TradeSideSell, 15, 15, 2),
	}

	require.NoError(t, r.perf.RecordSell(context.Background(), "AAPL"))

	// 10 shares from the 10-dollar lot and 5 from the 12-dollar lot:
	// 10*(15-10) + 5*(15-12) = 65.
	require.Len(t, r.perfRows.rows, 1)
	snap := r.perfRows.rows[0]
	require.True(t, snap.TotalProfit.Equal(decimal.NewFromInt(65)), "got %s", snap.TotalProfit)
	require.EqualValues(t, 1, snap.TotalTrades)
	require.EqualValues(t, 1, snap.WinningTrades)
	require.EqualValues(t, 0, snap.LosingTrades)
}

func TestPerformanceAccumulatesAcrossSells(t *testing.T) {
	r := newRig(testConfig(), &fakeBroker{})
	ctx := context.Background()

	r.trades.rows = []model.TradeRecord{
		tradeRow(model.TradeSideBuy, 10, 10, 0),
		tradeRow(model.TradeSideSell, 10, 15, 1),
	}
	require.NoError(t, r.perf.RecordSell(ctx, "AAPL"))

	r.trades.rows = append(r.trades.rows,
		tradeRow(model.TradeSideBuy, 10, 20, 2),
		tradeRow(model.TradeSideSell, 10, 18, 3),
	)
	require.NoError(t, r.perf.RecordSell(ctx, "AAPL"))

	require.Len(t, r.perfRows.rows, 2)
	snap := r.perfRows.rows[1]
	require.EqualValues(t, 2, snap.TotalTrades)
	require.EqualValues(t, 1, snap.WinningTrades)
	require.EqualValues(t, 1, snap.LosingTrades)
	// 50 from the first exit, -20 from the second.
	require.True(t, snap.TotalProfit.Equal(decimal.NewFromInt(30)), "got %s", snap.TotalProfit)
}

func TestSellLargerThanOpenLotsMatchesWhatIsAvailable(t *testing.T) {
	r := newRig(testConfig(), &fakeBroker{})
	r.trades.rows = []model.TradeRecord{
		tradeRow(model.TradeSideBuy, 10, 10, 0),
		tradeRow(model.TradeSideSell, 15, 15, 1),
	}

	require.NoError(t, r.perf.RecordSell(context.Background(), "AAPL"))
	require.Len(t, r.perfRows.rows, 1)
	require.True(t, r.perfRows.rows[0].TotalProfit.Equal(decimal.NewFromInt(50)))
}

func TestSellWithNoPriorBuysIsSkipped(t *testing.T) {
	r := newRig(testConfig(), &fakeBroker{})
	r.trades.rows = []model.TradeRecord{
		tradeRow(model.TradeSideSell, 10, 15, 0),
	}

	require.NoError(t, r.perf.RecordSell(context.Background(), "AAPL"))
	require.Empty(t, r.perfRows.rows)
}

func TestBreakEvenSellCountsAsLoss(t *testing.T) {
	r := newRig(testConfig(), &fakeBroker{})
	r.trades.rows = []model.TradeRecord{
		tradeRow(model.TradeSideBuy, 10, 10, 0),
		tradeRow(model.TradeSideSell, 10, 10, 1),
	}

	require.NoError(t, r.perf.RecordSell(context.Background(), "AAPL"))
	require.Len(t, r.perfRows.rows, 1)
	require.EqualValues(t, 1, r.perfRows.rows[0].LosingTrades)
	require.True(t, r.perfRows.rows[0].TotalProfit.IsZero())
}
