package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceRecord is a cumulative snapshot of realized performance.
// A new row is appended after every closing fill; the latest row is the
// current summary.
type PerformanceRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TotalTrades   int64           `gorm:"not null" json:"total_trades"`
	WinningTrades int64           `gorm:"not null" json:"winning_trades"`
	LosingTrades  int64           `gorm:"not null" json:"losing_trades"`
	TotalProfit   decimal.Decimal `gorm:"type:decimal(20,8)" json:"total_profit"`
	Timestamp     time.Time       `gorm:"not null;index" json:"timestamp"`
}

func (PerformanceRecord) TableName() string {
	return "performance_records"
}
