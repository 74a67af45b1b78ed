package indicators

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradeagent/src/model"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	require.InDelta(t, 4.0, SMA(values, 3), 1e-9)
	require.InDelta(t, 3.0, SMA(values, 5), 1e-9)
	require.False(t, IsDefined(SMA(values, 6)))
	require.False(t, IsDefined(SMA(nil, 1)))
}

func TestEMASeriesSeededWithSMA(t *testing.T) {
	series := EMASeries([]float64{1, 2, 3}, 3)

	require.Len(t, series, 3)
	require.False(t, IsDefined(series[0]))
	require.False(t, IsDefined(series[1]))
	require.InDelta(t, 2.0, series[2], 1e-9)
}

func TestEMASeriesContinuation(t *testing.T) {
	series := EMASeries([]float64{1, 2, 3, 4}, 3)

	// seed 2.0, multiplier 0.5: 2.0 + 0.5*(4-2.0) = 3.0
	require.InDelta(t, 3.0, series[3], 1e-9)
}

func TestEMASeriesInsufficientData(t *testing.T) {
	series := EMASeries([]float64{1, 2}, 3)

	for _, v := range series {
		require.False(t, IsDefined(v))
	}
}

func TestRSIAllGains(t *testing.T) {
	// Strictly rising closes: avgLoss is zero, RSI pegs at 100.
	rsi := RSI([]float64{10, 11, 12, 13, 14, 15}, 5)

	require.InDelta(t, 100.0, rsi, 1e-9)
}

func TestRSIMixedMoves(t *testing.T) {
	// Gains: 2+2 = 4, losses: 1+1 = 2 over 4 deltas.
	// avgGain = 1, avgLoss = 0.5, RS = 2, RSI = 100 - 100/3.
	rsi := RSI([]float64{10, 12, 11, 13, 12}, 4)

	require.InDelta(t, 100.0-100.0/3.0, rsi, 1e-9)
}

func TestRSIInsufficientData(t *testing.T) {
	require.False(t, IsDefined(RSI([]float64{10, 11, 12}, 3)))
}

func TestMACDInsufficientData(t *testing.T) {
	values := make([]float64, 34) // need slow+signal = 35
	res := MACD(values, 12, 26, 9)

	require.False(t, IsDefined(res.MACD))
	require.False(t, IsDefined(res.Signal))
	require.False(t, IsDefined(res.Histogram))
}

func TestMACDConstantSeries(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 100.0
	}
	res := MACD(values, 12, 26, 9)

	require.True(t, IsDefined(res.MACD))
	require.InDelta(t, 0.0, res.MACD, 1e-9)
	require.InDelta(t, 0.0, res.Signal, 1e-9)
	require.InDelta(t, 0.0, res.Histogram, 1e-9)
}

func TestMACDTrendingSeries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100.0 + float64(i)
	}
	res := MACD(values, 12, 26, 9)

	// In a steady uptrend the fast EMA sits above the slow EMA.
	require.True(t, IsDefined(res.MACD))
	require.Greater(t, res.MACD, 0.0)
}

func TestCloses(t *testing.T) {
	candles := []model.Candle{
		{Close: decimal.NewFromFloat(10.5)},
		{Close: decimal.NewFromFloat(11.25)},
	}

	closes := Closes(candles)
	require.Equal(t, []float64{10.5, 11.25}, closes)
}
