package aggregator

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"

	"tradeagent/src/model"
	"tradeagent/src/utils"
)

// CandleStore is the slice of the candle repository the aggregator needs.
type CandleStore interface {
	Insert(ctx context.Context, candle *model.Candle) error
}

// Aggregator folds a fixed number of raw ticks per symbol into one candle.
// Ticks for symbols outside the subscribed set are rejected.
type Aggregator struct {
	foldFactor int
	store      CandleStore
	onCandle   func(model.Candle)
	log        *logger.Entry

	mu      sync.Mutex
	buffers map[string][]model.Tick
}

func New(symbols []string, foldFactor int, store CandleStore, onCandle func(model.Candle), log *logger.Entry) *Aggregator {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	buffers := make(map[string][]model.Tick, len(symbols))
	for _, sym := range symbols {
		buffers[sym] = make([]model.Tick, 0, foldFactor)
	}
	return &Aggregator{
		foldFactor: foldFactor,
		store:      store,
		onCandle:   onCandle,
		log:        log,
		buffers:    buffers,
	}
}

// Offer appends a tick to its symbol's buffer. When the buffer reaches the
// fold factor it is drained into a single candle, which is persisted and
// handed to the completion callback.
func (a *Aggregator) Offer(ctx context.Context, tick model.Tick) {
	a.mu.Lock()
	buf, ok := a.buffers[tick.Symbol]
	if !ok {
		a.mu.Unlock()
		a.log.WithField("symbol", tick.Symbol).Warn("tick for unsubscribed symbol rejected")
		return
	}

	buf = append(buf, tick)
	if len(buf) < a.foldFactor {
		a.buffers[tick.Symbol] = buf
		a.mu.Unlock()
		return
	}

	a.buffers[tick.Symbol] = make([]model.Tick, 0, a.foldFactor)
	a.mu.Unlock()

	candle := fold(tick.Symbol, buf)
	if err := a.store.Insert(ctx, &candle); err != nil {
		a.log.WithError(err).WithField("symbol", tick.Symbol).Error("failed to persist candle")
		// The callback still fires, but the cycle it triggers reads
		// persisted history, so this candle is absent from it.
	}
	a.log.WithFields(logger.Fields{
		"symbol":    candle.Symbol,
		"timestamp": candle.Timestamp,
		"close":     candle.Close,
	}).Info("candle completed")

	if a.onCandle != nil {
		a.onCandle(candle)
	}
}

func fold(symbol string, ticks []model.Tick) model.Candle {
	first := ticks[0]
	last := ticks[len(ticks)-1]

	candle := model.Candle{
		Symbol:    symbol,
		Timestamp: utils.TruncateToMinute(last.Timestamp),
		Open:      first.Open,
		High:      first.High,
		Low:       first.Low,
		Close:     last.Close,
	}
	for _, t := range ticks {
		if t.High.GreaterThan(candle.High) {
			candle.High = t.High
		}
		if t.Low.LessThan(candle.Low) {
			candle.Low = t.Low
		}
		candle.Volume = candle.Volume.Add(t.Volume)
	}
	return candle
}
