package stream

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeagent/src/model"
	"tradeagent/src/trading"
)

// Frame type discriminator values carried in the "T" field.
const (
	frameSuccess      = "success"
	frameError        = "error"
	frameSubscription = "subscription"
	frameBar          = "b"
	frameTradeUpdate  = "trade_update"
)

// Error codes the venue treats as unrecoverable for this session.
const (
	codeNotAuthenticated = 401
	codeAlreadyConnected = 409
)

type authFrame struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type subscribeFrame struct {
	Action       string   `json:"action"`
	Bars         []string `json:"bars,omitempty"`
	Trades       []string `json:"trades,omitempty"`
	Quotes       []string `json:"quotes,omitempty"`
	TradeUpdates bool     `json:"trade_updates,omitempty"`
}

type pingFrame struct {
	Action string `json:"action"`
}

// frame is the union of every inbound message shape, discriminated by T.
type frame struct {
	Type string `json:"T"`
	Msg  string `json:"msg,omitempty"`
	Code int    `json:"code,omitempty"`

	// bar fields
	Symbol    string          `json:"S,omitempty"`
	Open      decimal.Decimal `json:"o,omitempty"`
	High      decimal.Decimal `json:"h,omitempty"`
	Low       decimal.Decimal `json:"l,omitempty"`
	Close     decimal.Decimal `json:"c,omitempty"`
	Volume    decimal.Decimal `json:"v,omitempty"`
	Timestamp time.Time       `json:"t,omitempty"`

	// trade update fields
	Event string      `json:"event,omitempty"`
	Trade *tradeFrame `json:"trade,omitempty"`
}

type tradeFrame struct {
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Qty       int64           `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

func (f *frame) tick() model.Tick {
	return model.Tick{
		Symbol:    f.Symbol,
		Open:      f.Open,
		High:      f.High,
		Low:       f.Low,
		Close:     f.Close,
		Volume:    f.Volume,
		Timestamp: f.Timestamp,
	}
}

func (f *frame) tradeEvent() trading.TradeEvent {
	return trading.TradeEvent{
		Symbol:    f.Trade.Symbol,
		Side:      f.Trade.Side,
		Quantity:  f.Trade.Qty,
		Price:     f.Trade.Price,
		Timestamp: f.Trade.Timestamp,
	}
}
