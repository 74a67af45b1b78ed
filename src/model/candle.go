package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a single raw price bar from the market-data stream. Ticks are
// ephemeral: once folded into a Candle they are discarded.
type Tick struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Candle is an aggregated OHLCV bar over a fixed number of ticks.
// Immutable once inserted; per-symbol histories are append-only and strictly
// increasing by timestamp.
type Candle struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"size:20;not null;index:idx_candles_symbol_ts,unique" json:"symbol"`
	Timestamp time.Time       `gorm:"not null;index:idx_candles_symbol_ts,unique" json:"timestamp"`
	Open      decimal.Decimal `gorm:"type:decimal(20,8)" json:"open"`
	High      decimal.Decimal `gorm:"type:decimal(20,8)" json:"high"`
	Low       decimal.Decimal `gorm:"type:decimal(20,8)" json:"low"`
	Close     decimal.Decimal `gorm:"type:decimal(20,8)" json:"close"`
	Volume    decimal.Decimal `gorm:"type:decimal(20,8)" json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Candle) TableName() string {
	return "candles"
}
