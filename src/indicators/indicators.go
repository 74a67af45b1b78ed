package indicators

import (
	"math"

	"tradeagent/src/model"
)

// Undefined is the sentinel returned when there is not enough history to
// compute an indicator. Callers must check with IsDefined before comparing.
var Undefined = math.NaN()

func IsDefined(v float64) bool {
	return !math.IsNaN(v)
}

// Closes extracts the close series from a candle history, oldest first.
func Closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// SMA returns the mean of the last period values, or Undefined when fewer
// than period values exist.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return Undefined
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMASeries computes an exponential moving average over the whole series.
// The value at index period-1 is seeded with the SMA of the first period
// values; earlier indices are Undefined.
func EMASeries(values []float64, period int) []float64 {
	result := make([]float64, len(values))
	for i := range result {
		result[i] = Undefined
	}
	if period <= 0 || len(values) < period {
		return result
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	multiplier := 2.0 / float64(period+1)
	ema := sum / float64(period)
	result[period-1] = ema

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		result[i] = ema
	}
	return result
}

// RSI computes the Relative Strength Index over the most recent period
// deltas. Requires at least period+1 values. When the average loss is zero
// the RSI is 100 by definition.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) <= period {
		return Undefined
	}

	gainSum := 0.0
	lossSum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += math.Abs(diff)
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACDResult holds the latest MACD line, signal line and histogram values.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

func undefinedMACD() MACDResult {
	return MACDResult{MACD: Undefined, Signal: Undefined, Histogram: Undefined}
}

// MACD computes the MACD line as fast EMA minus slow EMA, the signal line as
// an EMA of the MACD line, and the histogram as their difference. All three
// are Undefined when fewer than slow+signal values exist, or when too few
// valid MACD points remain for the signal EMA.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(values) < slowPeriod+signalPeriod {
		return undefinedMACD()
	}

	fastEMA := EMASeries(values, fastPeriod)
	slowEMA := EMASeries(values, slowPeriod)

	macdLine := make([]float64, 0, len(values))
	for i := range values {
		if IsDefined(fastEMA[i]) && IsDefined(slowEMA[i]) {
			macdLine = append(macdLine, fastEMA[i]-slowEMA[i])
		}
	}

	if len(macdLine) < signalPeriod {
		return undefinedMACD()
	}

	signalLine := EMASeries(macdLine, signalPeriod)
	lastSignal := signalLine[len(signalLine)-1]
	if !IsDefined(lastSignal) {
		return undefinedMACD()
	}

	lastMACD := macdLine[len(macdLine)-1]
	return MACDResult{
		MACD:      lastMACD,
		Signal:    lastSignal,
		Histogram: lastMACD - lastSignal,
	}
}
