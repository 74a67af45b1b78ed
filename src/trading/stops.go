package trading

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeagent/src/model"
	"tradeagent/src/notify"
	"tradeagent/src/utils"
)

// StopManager owns the protective stop lifecycle for open positions:
// placing the initial stop after an entry fills, ratcheting it upward as
// the price rises, and tearing it down when the position closes.
//
// Methods assume the caller holds the per-symbol lock; the Trader is the
// only entry point.
type StopManager struct {
	cfg       Config
	broker    Broker
	stops     stopStore
	positions positionStore
	notifier  notify.Notifier
	log       *logger.Entry
	now       func() time.Time
}

func NewStopManager(cfg Config, broker Broker, stops stopStore, positions positionStore, notifier notify.Notifier, log *logger.Entry) *StopManager {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &StopManager{
		cfg:       cfg,
		broker:    broker,
		stops:     stops,
		positions: positions,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// PlaceInitial protects a freshly filled entry: a stop sell below the
// entry price and, when configured, a take-profit limit above it. A stop
// placement failure leaves the position naked, so it is escalated.
func (m *StopManager) PlaceInitial(ctx context.Context, symbol string, qty int64, entryPrice decimal.Decimal) error {
	existing, err := m.stops.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if existing != nil {
		m.log.WithField("symbol", symbol).Debug("stop already in place, not replacing")
		return nil
	}

	stopPrice := applyPercent(entryPrice, -m.cfg.StopLossPercent)
	stopOrderID, err := m.broker.PlaceStopOrder(ctx, symbol, qty, stopPrice, model.TradeSideSell)
	if err != nil {
		m.notifier.Send("🚨 " + symbol + " position is UNPROTECTED: stop order placement failed: " + err.Error())
		return err
	}

	stop := &model.TrailingStop{
		Symbol:              symbol,
		EntryPrice:          entryPrice,
		InitialStopPrice:    stopPrice,
		CurrentStopPrice:    stopPrice,
		TrailingStepPercent: decimal.NewFromFloat(m.cfg.TrailingStepPercent),
		LastAdjustedAt:      m.now(),
		StopOrderID:         stopOrderID,
	}

	if m.cfg.TakeProfitPercent > 0 {
		tpPrice := applyPercent(entryPrice, m.cfg.TakeProfitPercent)
		tpOrderID, err := m.broker.PlaceLimitOrder(ctx, symbol, qty, model.TradeSideSell, tpPrice)
		if err != nil {
			m.log.WithError(err).WithField("symbol", symbol).
				Warn("take-profit order placement failed, continuing with stop only")
		} else {
			stop.TakeProfitOrderID = tpOrderID
		}
	}

	if err := m.stops.Upsert(ctx, stop); err != nil {
		return err
	}

	m.log.WithFields(logger.Fields{
		"symbol":     symbol,
		"entry":      utils.FormatCurrency(entryPrice),
		"stop":       utils.FormatCurrency(stopPrice),
		"stop_order": stopOrderID,
	}).Info("protective stop placed")
	return nil
}

// OnTick ratchets the stop upward when the price has risen enough. The
// replacement is cancel-then-place: if the cancel fails the old stop is
// still working at the venue and remains authoritative, so the ratchet is
// abandoned for this tick. The stop price never moves down.
func (m *StopManager) OnTick(ctx context.Context, tick model.Tick) {
	stop, err := m.stops.Get(ctx, tick.Symbol)
	if err != nil {
		m.log.WithError(err).WithField("symbol", tick.Symbol).Error("failed to load trailing stop")
		return
	}
	if stop == nil {
		return
	}

	candidate := tick.Close.Mul(decimal.NewFromInt(100).Sub(stop.TrailingStepPercent)).Div(decimal.NewFromInt(100))
	if candidate.LessThanOrEqual(stop.CurrentStopPrice) {
		return
	}

	qty, err := m.positions.Get(ctx, tick.Symbol)
	if err != nil {
		m.log.WithError(err).WithField("symbol", tick.Symbol).Error("failed to load position for ratchet")
		return
	}
	if qty < 1 {
		return
	}

	if err := m.broker.CancelOrder(ctx, stop.StopOrderID); err != nil {
		m.log.WithError(err).WithFields(logger.Fields{
			"symbol":     tick.Symbol,
			"stop_order": stop.StopOrderID,
		}).Warn("could not cancel working stop, keeping it")
		return
	}

	newOrderID, err := m.broker.PlaceStopOrder(ctx, tick.Symbol, qty, candidate, model.TradeSideSell)
	if err != nil {
		m.notifier.Send("🚨 " + tick.Symbol + " position is UNPROTECTED: stop replacement failed after cancel: " + err.Error())
		m.log.WithError(err).WithField("symbol", tick.Symbol).
			Error("stop replacement failed, position has no working stop")
		return
	}

	stop.CurrentStopPrice = candidate
	stop.StopOrderID = newOrderID
	stop.LastAdjustedAt = m.now()
	if err := m.stops.Upsert(ctx, stop); err != nil {
		m.log.WithError(err).WithField("symbol", tick.Symbol).Error("failed to persist ratcheted stop")
		return
	}

	m.log.WithFields(logger.Fields{
		"symbol": tick.Symbol,
		"price":  utils.FormatCurrency(tick.Close),
		"stop":   utils.FormatCurrency(candidate),
	}).Info("trailing stop ratcheted up")
}

// Clear removes stop state after the position closed. Remote orders are
// cancelled best-effort: a stop that already filled cannot be cancelled
// and that is fine.
func (m *StopManager) Clear(ctx context.Context, symbol string) error {
	stop, err := m.stops.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if stop == nil {
		return nil
	}

	for _, orderID := range []string{stop.StopOrderID, stop.TakeProfitOrderID} {
		if orderID == "" {
			continue
		}
		if err := m.broker.CancelOrder(ctx, orderID); err != nil {
			m.log.WithError(err).WithFields(logger.Fields{
				"symbol": symbol,
				"order":  orderID,
			}).Debug("cancel on clear failed, order likely already done")
		}
	}

	return m.stops.Delete(ctx, symbol)
}

// applyPercent moves a price by pct percent, negative pct moves down.
func applyPercent(price decimal.Decimal, pct float64) decimal.Decimal {
	factor := decimal.NewFromInt(100).Add(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	return price.Mul(factor)
}
