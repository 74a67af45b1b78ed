package trading

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeagent/src/model"
	"tradeagent/src/utils"
)

// PerformanceTracker turns the append-only fill log into realized P&L.
// Sells are matched against the oldest unmatched buys of the same symbol,
// so partial exits attribute profit to the lots actually closed.
type PerformanceTracker struct {
	trades tradeStore
	perf   performanceStore
	log    *logger.Entry
	now    func() time.Time
}

func NewPerformanceTracker(trades tradeStore, perf performanceStore, log *logger.Entry) *PerformanceTracker {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &PerformanceTracker{
		trades: trades,
		perf:   perf,
		log:    log,
		now:    time.Now,
	}
}

// RecordSell computes the realized profit of the most recent sell for a
// symbol and appends a cumulative performance snapshot. Call after the
// sell's trade record has been inserted.
func (p *PerformanceTracker) RecordSell(ctx context.Context, symbol string) error {
	trades, err := p.trades.FindBySymbolAsc(ctx, symbol)
	if err != nil {
		return err
	}

	profit, matched := lastSellProfit(trades)
	if !matched {
		p.log.WithField("symbol", symbol).
			Warn("sell with no prior buys to match, skipping performance update")
		return nil
	}

	latest, err := p.perf.Latest(ctx)
	if err != nil {
		return err
	}

	next := model.PerformanceRecord{Timestamp: p.now()}
	if latest != nil {
		next.TotalTrades = latest.TotalTrades
		next.WinningTrades = latest.WinningTrades
		next.LosingTrades = latest.LosingTrades
		next.TotalProfit = latest.TotalProfit
	} else {
		next.TotalProfit = decimal.Zero
	}

	next.TotalTrades++
	if profit.IsPositive() {
		next.WinningTrades++
	} else {
		next.LosingTrades++
	}
	next.TotalProfit = next.TotalProfit.Add(profit)

	p.log.WithFields(logger.Fields{
		"symbol":       symbol,
		"profit":       utils.FormatCurrency(profit),
		"total_profit": utils.FormatCurrency(next.TotalProfit),
		"total_trades": next.TotalTrades,
	}).Info("recorded trade outcome")

	return p.perf.Append(ctx, &next)
}

type buyLot struct {
	qty   int64
	price decimal.Decimal
}

// lastSellProfit replays the chronological fill log, matching each sell
// against the oldest open buy lots, and returns the realized profit of the
// final sell. A sell larger than the open lots is matched for the quantity
// available.
func lastSellProfit(trades []model.TradeRecord) (decimal.Decimal, bool) {
	var lots []buyLot
	profit := decimal.Zero
	matched := false

	for _, tr := range trades {
		switch tr.Side {
		case model.TradeSideBuy:
			lots = append(lots, buyLot{qty: tr.Quantity, price: tr.Price})
		case model.TradeSideSell:
			profit = decimal.Zero
			matched = false
			remaining := tr.Quantity
			for remaining > 0 && len(lots) > 0 {
				lot := &lots[0]
				take := lot.qty
				if remaining < take {
					take = remaining
				}
				profit = profit.Add(tr.Price.Sub(lot.price).Mul(decimal.NewFromInt(take)))
				matched = true
				lot.qty -= take
				remaining -= take
				if lot.qty == 0 {
					lots = lots[1:]
				}
			}
		}
	}
	return profit, matched
}
