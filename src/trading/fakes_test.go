package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradeagent/src/connectors"
	"tradeagent/src/model"
)

type placedOrder struct {
	symbol  string
	qty     int64
	side    string
	kind    string
	price   decimal.Decimal
	orderID string
}

type fakeBroker struct {
	cash         decimal.Decimal
	placed       []placedOrder
	canceled     []string
	statusQueue  []connectors.OrderStatus
	nextID       int
	rejectMarket bool
	failCancel   bool
	failStop     bool
}

func (b *fakeBroker) newOrderID() string {
	b.nextID++
	return fmt.Sprintf("ord-%d", b.nextID)
}

func (b *fakeBroker) PlaceMarketOrder(_ context.Context, symbol string, qty int64, side string) (string, error) {
	if b.rejectMarket {
		return "", fmt.Errorf("insufficient buying power: %w", connectors.ErrOrderRejected)
	}
	id := b.newOrderID()
	b.placed = append(b.placed, placedOrder{symbol: symbol, qty: qty, side: side, kind: "market", orderID: id})
	return id, nil
}

func (b *fakeBroker) PlaceStopOrder(_ context.Context, symbol string, qty int64, stopPrice decimal.Decimal, side string) (string, error) {
	if b.failStop {
		return "", fmt.Errorf("stop rejected: %w", connectors.ErrOrderRejected)
	}
	id := b.newOrderID()
	b.placed = append(b.placed, placedOrder{symbol: symbol, qty: qty, side: side, kind: "stop", price: stopPrice, orderID: id})
	return id, nil
}

func (b *fakeBroker) PlaceLimitOrder(_ context.Context, symbol string, qty int64, side string, limitPrice decimal.Decimal) (string, error) {
	id := b.newOrderID()
	b.placed = append(b.placed, placedOrder{symbol: symbol, qty: qty, side: side, kind: "limit", price: limitPrice, orderID: id})
	return id, nil
}

func (b *fakeBroker) CancelOrder(_ context.Context, orderID string) error {
	if b.failCancel {
		return fmt.Errorf("order %s not cancelable", orderID)
	}
	b.canceled = append(b.canceled, orderID)
	return nil
}

func (b *fakeBroker) GetOrderStatus(_ context.Context, orderID string) (*connectors.OrderStatus, error) {
	if len(b.statusQueue) == 0 {
		return &connectors.OrderStatus{OrderID: orderID, Status: "new"}, nil
	}
	st := b.statusQueue[0]
	b.statusQueue = b.statusQueue[1:]
	st.OrderID = orderID
	return &st, nil
}

func (b *fakeBroker) GetAccountCash(context.Context) (decimal.Decimal, error) {
	return b.cash, nil
}

func (b *fakeBroker) stopOrders() []placedOrder {
	var out []placedOrder
	for _, o := range b.placed {
		if o.kind == "stop" {
			out = append(out, o)
		}
	}
	return out
}

type fakeCandles struct {
	mu     sync.Mutex
	recent map[string][]model.Candle
	calls  int

	// When set, GetRecent signals entered and then blocks until gate
	// closes. Lets a test hold an evaluation cycle open.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeCandles) GetRecent(_ context.Context, symbol string, limit int) ([]model.Candle, error) {
	f.mu.Lock()
	f.calls++
	entered, gate := f.entered, f.gate
	rows := f.recent[symbol]
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

func (f *fakeCandles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCandles) GetLast(_ context.Context, symbol string) (*model.Candle, error) {
	rows := f.recent[symbol]
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	return &last, nil
}

type fakePositions struct {
	held map[string]int64
}

func (f *fakePositions) Get(_ context.Context, symbol string) (int64, error) {
	return f.held[symbol], nil
}

func (f *fakePositions) ApplyDelta(_ context.Context, symbol string, delta int64) (int64, error) {
	next := f.held[symbol] + delta
	if next < 0 {
		next = 0
	}
	f.held[symbol] = next
	return next, nil
}

type fakeTrades struct {
	rows []model.TradeRecord
}

func (f *fakeTrades) Insert(_ context.Context, trade *model.TradeRecord) error {
	f.rows = append(f.rows, *trade)
	return nil
}

func (f *fakeTrades) FindBySymbolAsc(_ context.Context, symbol string) ([]model.TradeRecord, error) {
	var out []model.TradeRecord
	for _, tr := range f.rows {
		if tr.Symbol == symbol {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (f *fakeTrades) ExistsSince(_ context.Context, symbol, side string, qty int64, since time.Time) (bool, error) {
	for _, tr := range f.rows {
		if tr.Symbol == symbol && tr.Side == side && tr.Quantity == qty && !tr.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeStops struct {
	rows map[string]*model.TrailingStop
}

func (f *fakeStops) Get(_ context.Context, symbol string) (*model.TrailingStop, error) {
	st, ok := f.rows[symbol]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStops) Upsert(_ context.Context, stop *model.TrailingStop) error {
	cp := *stop
	f.rows[stop.Symbol] = &cp
	return nil
}

func (f *fakeStops) Delete(_ context.Context, symbol string) error {
	delete(f.rows, symbol)
	return nil
}

type fakePerf struct {
	rows []model.PerformanceRecord
}

func (f *fakePerf) Latest(context.Context) (*model.PerformanceRecord, error) {
	if len(f.rows) == 0 {
		return nil, nil
	}
	cp := f.rows[len(f.rows)-1]
	return &cp, nil
}

func (f *fakePerf) Append(_ context.Context, rec *model.PerformanceRecord) error {
	f.rows = append(f.rows, *rec)
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(message string) {
	f.messages = append(f.messages, message)
}
