package strategy

import (
	logger "github.com/sirupsen/logrus"

	"tradeagent/src/indicators"
	"tradeagent/src/model"
)

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Params are the immutable indicator thresholds and periods for one
// deployment. Passed in at construction, never mutated.
type Params struct {
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MAShortPeriod int
	MALongPeriod  int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
}

// Snapshot holds the indicator values the rule is evaluated against.
// Any field may be undefined when history is insufficient.
type Snapshot struct {
	RSI       float64
	SMAShort  float64
	SMALong   float64
	MACD      float64
	Signal    float64
	Histogram float64
}

type Evaluator struct {
	params Params
	log    *logger.Entry
}

func NewEvaluator(params Params, log *logger.Entry) *Evaluator {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Evaluator{params: params, log: log}
}

// RequiredHistory is the minimum number of candles before the rule can
// produce anything other than HOLD. MACD needs slow+signal closes before
// its signal line exists, which can exceed the longest MA window.
func (e *Evaluator) RequiredHistory() int {
	longest := e.params.MALongPeriod + 1
	if n := e.params.RSIPeriod + 1; n > longest {
		longest = n
	}
	if n := e.params.MACDSlow + e.params.MACDSignal; n > longest {
		longest = n
	}
	return longest
}

// Snapshot computes the indicator set for a candle history, oldest first.
func (e *Evaluator) Snapshot(candles []model.Candle) Snapshot {
	closes := indicators.Closes(candles)
	macd := indicators.MACD(closes, e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal)
	return Snapshot{
		RSI:       indicators.RSI(closes, e.params.RSIPeriod),
		SMAShort:  indicators.SMA(closes, e.params.MAShortPeriod),
		SMALong:   indicators.SMA(closes, e.params.MALongPeriod),
		MACD:      macd.MACD,
		Signal:    macd.Signal,
		Histogram: macd.Histogram,
	}
}

// Evaluate maps a symbol's candle history to BUY, SELL or HOLD.
// The rule is conjunctive: all three indicators must agree, and any
// undefined indicator yields HOLD.
func (e *Evaluator) Evaluate(symbol string, candles []model.Candle) Signal {
	if len(candles) < e.RequiredHistory() {
		e.log.WithFields(logger.Fields{
			"symbol":  symbol,
			"candles": len(candles),
			"needed":  e.RequiredHistory(),
		}).Debug("not enough candle history, holding")
		return SignalHold
	}

	snap := e.Snapshot(candles)
	if !indicators.IsDefined(snap.RSI) ||
		!indicators.IsDefined(snap.SMAShort) ||
		!indicators.IsDefined(snap.SMALong) ||
		!indicators.IsDefined(snap.MACD) {
		return SignalHold
	}

	bullishTrend := snap.SMAShort > snap.SMALong
	bearishTrend := snap.SMAShort < snap.SMALong
	macdBullish := snap.MACD > snap.Signal
	macdBearish := snap.MACD < snap.Signal

	switch {
	case snap.RSI < e.params.RSIOversold && bullishTrend && macdBullish:
		return SignalBuy
	case snap.RSI > e.params.RSIOverbought && bearishTrend && macdBearish:
		return SignalSell
	default:
		return SignalHold
	}
}
