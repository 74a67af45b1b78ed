package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrailingStop tracks the protective stop for an open long position.
// At most one live row per symbol. CurrentStopPrice only ever moves up while
// the position is held; the row is deleted when the position closes.
type TrailingStop struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Symbol              string          `gorm:"size:20;not null;uniqueIndex" json:"symbol"`
	EntryPrice          decimal.Decimal `gorm:"type:decimal(20,8)" json:"entry_price"`
	InitialStopPrice    decimal.Decimal `gorm:"type:decimal(20,8)" json:"initial_stop_price"`
	CurrentStopPrice    decimal.Decimal `gorm:"type:decimal(20,8)" json:"current_stop_price"`
	TrailingStepPercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"trailing_step_percent"`
	LastAdjustedAt      time.Time       `json:"last_adjusted_at"`
	StopOrderID         string          `gorm:"size:60;not null" json:"stop_order_id"`
	TakeProfitOrderID   string          `gorm:"size:60" json:"take_profit_order_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (TrailingStop) TableName() string {
	return "trailing_stops"
}
