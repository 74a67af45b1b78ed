package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeRecord is one confirmed fill. Write-once, never mutated.
type TradeRecord struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"size:20;not null;index" json:"symbol"`
	Side      string          `gorm:"size:10;not null" json:"side"`
	Quantity  int64           `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	Timestamp time.Time       `gorm:"not null;index" json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

func (TradeRecord) TableName() string {
	return "trades"
}
