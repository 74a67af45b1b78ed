package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeagent/src/connectors"
	"tradeagent/src/model"
	"tradeagent/src/notify"
	"tradeagent/src/strategy"
	"tradeagent/src/utils"
)

// ErrOrderTimeout means an order was accepted by the venue but its fill
// was not confirmed within the polling window. No local state is mutated
// when this happens.
var ErrOrderTimeout = errors.New("order fill confirmation timed out")

// streamDedupeWindow bounds how far back OnTradeUpdate looks for a trade
// record matching a stream-delivered fill. Venue timestamps never equal
// our poll-confirmation timestamps exactly.
const streamDedupeWindow = 2 * time.Minute

// TradeEvent is a fill delivered over the account stream.
type TradeEvent struct {
	Symbol    string
	Side      string
	Quantity  int64
	Price     decimal.Decimal
	Timestamp time.Time
}

// Trader is the decision-to-order pipeline. It owns every mutation of
// per-symbol state: strategy-driven entries and exits, fills reported by
// the account stream, and stop ratchets on price ticks.
type Trader struct {
	cfg       Config
	broker    Broker
	evaluator *strategy.Evaluator
	stops     *StopManager
	perf      *PerformanceTracker

	candles   candleStore
	positions positionStore
	trades    tradeStore

	locks    *symbolLocks
	notifier notify.Notifier
	log      *logger.Entry

	evalMu     sync.Mutex
	evaluating map[string]bool

	now   func() time.Time
	sleep func(time.Duration)
}

func NewTrader(
	cfg Config,
	broker Broker,
	evaluator *strategy.Evaluator,
	stops *StopManager,
	perf *PerformanceTracker,
	candles candleStore,
	positions positionStore,
	trades tradeStore,
	notifier notify.Notifier,
	log *logger.Entry,
) *Trader {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Trader{
		cfg:       cfg,
		broker:    broker,
		evaluator: evaluator,
		stops:     stops,
		perf:      perf,
		candles:   candles,
		positions: positions,
		trades:    trades,
		locks:      newSymbolLocks(),
		notifier:   notifier,
		log:        log,
		evaluating: make(map[string]bool),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// EvaluateSymbol runs the strategy over a symbol's candle history and
// executes the resulting signal. Invoked after each completed candle.
// At most one cycle runs per symbol: a cycle stuck in the fill poll can
// outlast the candle interval, and a second concurrent cycle would pass
// the flat-position check before the first one's fill lands.
func (t *Trader) EvaluateSymbol(ctx context.Context, symbol string) {
	t.evalMu.Lock()
	if t.evaluating[symbol] {
		t.evalMu.Unlock()
		t.log.WithField("symbol", symbol).Debug("evaluation cycle already in flight, skipping")
		return
	}
	t.evaluating[symbol] = true
	t.evalMu.Unlock()
	defer func() {
		t.evalMu.Lock()
		delete(t.evaluating, symbol)
		t.evalMu.Unlock()
	}()

	if err := t.evaluateSymbol(ctx, symbol); err != nil {
		t.log.WithError(err).WithField("symbol", symbol).Error("trade cycle failed")
		t.notifier.Send("⚠️ " + symbol + ": " + err.Error())
	}
}

func (t *Trader) evaluateSymbol(ctx context.Context, symbol string) error {
	candles, err := t.candles.GetRecent(ctx, symbol, t.evaluator.RequiredHistory())
	if err != nil {
		return fmt.Errorf("loading candle history: %w", err)
	}

	signal := t.evaluator.Evaluate(symbol, candles)
	t.log.WithFields(logger.Fields{
		"symbol":  symbol,
		"signal":  signal,
		"candles": len(candles),
	}).Debug("strategy evaluated")

	switch signal {
	case strategy.SignalBuy:
		return t.handleBuy(ctx, symbol)
	case strategy.SignalSell:
		return t.handleSell(ctx, symbol)
	default:
		return nil
	}
}

func (t *Trader) handleBuy(ctx context.Context, symbol string) error {
	mu := t.locks.forSymbol(symbol)

	mu.Lock()
	held, err := t.positions.Get(ctx, symbol)
	mu.Unlock()
	if err != nil {
		return err
	}
	if held > 0 {
		t.log.WithFields(logger.Fields{"symbol": symbol, "held": held}).
			Debug("already holding, skipping buy signal")
		return nil
	}

	cash, err := t.broker.GetAccountCash(ctx)
	if err != nil {
		return fmt.Errorf("fetching account cash: %w", err)
	}
	last, err := t.candles.GetLast(ctx, symbol)
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}

	qty := sizePosition(cash, t.cfg.PositionSizePercent, last.Close)
	if qty < 1 {
		t.log.WithFields(logger.Fields{
			"symbol": symbol,
			"cash":   utils.FormatCurrency(cash),
			"price":  utils.FormatCurrency(last.Close),
		}).Info("sized position below one share, skipping buy")
		return nil
	}

	orderID, err := t.broker.PlaceMarketOrder(ctx, symbol, qty, model.TradeSideBuy)
	if err != nil {
		return fmt.Errorf("placing buy order: %w", err)
	}

	status, err := t.waitForFill(ctx, orderID)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	// The account stream usually delivers the fill before the poll
	// confirms it; whichever side loses the race must not apply it twice.
	dup, err := t.trades.ExistsSince(ctx, symbol, model.TradeSideBuy, qty, t.now().Add(-streamDedupeWindow))
	if err != nil {
		return err
	}
	if dup {
		t.log.WithFields(logger.Fields{"symbol": symbol, "order": orderID}).
			Debug("buy fill already applied via account stream")
		return nil
	}

	if _, err := t.positions.ApplyDelta(ctx, symbol, qty); err != nil {
		return err
	}
	if err := t.recordFill(ctx, symbol, model.TradeSideBuy, qty, status.FilledAvgPrice, t.now()); err != nil {
		return err
	}
	t.notifier.Send("📦 BUY " + utils.FormatQuantity(qty) + " " + symbol + " @ " + utils.FormatCurrency(status.FilledAvgPrice))

	return t.stops.PlaceInitial(ctx, symbol, qty, status.FilledAvgPrice)
}

func (t *Trader) handleSell(ctx context.Context, symbol string) error {
	mu := t.locks.forSymbol(symbol)

	mu.Lock()
	held, err := t.positions.Get(ctx, symbol)
	mu.Unlock()
	if err != nil {
		return err
	}
	if held < 1 {
		t.log.WithField("symbol", symbol).Debug("nothing held, skipping sell signal")
		return nil
	}

	orderID, err := t.broker.PlaceMarketOrder(ctx, symbol, held, model.TradeSideSell)
	if err != nil {
		return fmt.Errorf("placing sell order: %w", err)
	}

	status, err := t.waitForFill(ctx, orderID)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	dup, err := t.trades.ExistsSince(ctx, symbol, model.TradeSideSell, held, t.now().Add(-streamDedupeWindow))
	if err != nil {
		return err
	}
	if dup {
		t.log.WithFields(logger.Fields{"symbol": symbol, "order": orderID}).
			Debug("sell fill already applied via account stream")
		return nil
	}

	if _, err := t.positions.ApplyDelta(ctx, symbol, -held); err != nil {
		return err
	}
	if err := t.recordFill(ctx, symbol, model.TradeSideSell, held, status.FilledAvgPrice, t.now()); err != nil {
		return err
	}
	t.notifier.Send("📦 SELL " + utils.FormatQuantity(held) + " " + symbol + " @ " + utils.FormatCurrency(status.FilledAvgPrice))

	if err := t.stops.Clear(ctx, symbol); err != nil {
		t.log.WithError(err).WithField("symbol", symbol).Error("failed to clear stop after sell")
	}
	return t.perf.RecordSell(ctx, symbol)
}

// OnTick forwards a raw price tick to the stop ratchet under the symbol
// lock. Hot path: called for every bar on the market-data stream.
func (t *Trader) OnTick(ctx context.Context, tick model.Tick) {
	mu := t.locks.forSymbol(tick.Symbol)
	mu.Lock()
	defer mu.Unlock()
	t.stops.OnTick(ctx, tick)
}

// OnTradeUpdate applies a fill reported by the account stream. Fills the
// executor already confirmed by polling arrive here again and are dropped;
// fills that originate at the venue, a triggered stop or take-profit, are
// seen here first and drive the position, ledger and stop teardown.
func (t *Trader) OnTradeUpdate(ctx context.Context, ev TradeEvent) {
	mu := t.locks.forSymbol(ev.Symbol)
	mu.Lock()
	defer mu.Unlock()

	dup, err := t.trades.ExistsSince(ctx, ev.Symbol, ev.Side, ev.Quantity, t.now().Add(-streamDedupeWindow))
	if err != nil {
		t.log.WithError(err).WithField("symbol", ev.Symbol).Error("duplicate check failed, dropping trade update")
		return
	}
	if dup {
		t.log.WithFields(logger.Fields{
			"symbol": ev.Symbol,
			"side":   ev.Side,
			"qty":    ev.Quantity,
		}).Debug("trade update already recorded, skipping")
		return
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	if err := t.recordFill(ctx, ev.Symbol, ev.Side, ev.Quantity, ev.Price, ts); err != nil {
		t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to record stream fill")
		return
	}

	switch ev.Side {
	case model.TradeSideBuy:
		if _, err := t.positions.ApplyDelta(ctx, ev.Symbol, ev.Quantity); err != nil {
			t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to apply buy fill")
			return
		}
		if err := t.stops.PlaceInitial(ctx, ev.Symbol, ev.Quantity, ev.Price); err != nil {
			t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to protect streamed buy fill")
		}
	case model.TradeSideSell:
		if _, err := t.positions.ApplyDelta(ctx, ev.Symbol, -ev.Quantity); err != nil {
			t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to apply sell fill")
			return
		}
		if err := t.stops.Clear(ctx, ev.Symbol); err != nil {
			t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to clear stop after streamed sell")
		}
		if err := t.perf.RecordSell(ctx, ev.Symbol); err != nil {
			t.log.WithError(err).WithField("symbol", ev.Symbol).Error("failed to update performance")
		}
	}

	t.notifier.Send("📦 " + ev.Side + " " + utils.FormatQuantity(ev.Quantity) + " " + ev.Symbol + " @ " + utils.FormatCurrency(ev.Price))
}

// waitForFill polls the order until it fills or the attempt budget runs
// out. Transient status errors burn an attempt and keep polling.
func (t *Trader) waitForFill(ctx context.Context, orderID string) (*connectors.OrderStatus, error) {
	for attempt := 0; attempt < t.cfg.FillPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		t.sleep(t.cfg.FillPollInterval)

		status, err := t.broker.GetOrderStatus(ctx, orderID)
		if err != nil {
			t.log.WithError(err).WithField("order", orderID).Warn("order status poll failed")
			continue
		}
		switch status.Status {
		case connectors.OrderStatusFilled:
			return status, nil
		case connectors.OrderStatusCanceled:
			return nil, fmt.Errorf("order %s was canceled at the venue", orderID)
		}
	}
	return nil, fmt.Errorf("%w: order %s", ErrOrderTimeout, orderID)
}

func (t *Trader) recordFill(ctx context.Context, symbol, side string, qty int64, price decimal.Decimal, ts time.Time) error {
	return t.trades.Insert(ctx, &model.TradeRecord{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: ts,
	})
}

// sizePosition computes floor(cash * pct/100 / price) shares.
func sizePosition(cash decimal.Decimal, pct float64, price decimal.Decimal) int64 {
	if price.IsZero() {
		return 0
	}
	budget := cash.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	return budget.Div(price).IntPart()
}
