package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeagent/src/database"
	"tradeagent/src/model"
)

// TradeRepository is the append-only fill log.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Debug("Creating new TradeRepository with MainDB")

	return &TradeRepository{db: database.MainDB}
}

func NewTradeRepositoryWithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Insert(ctx context.Context, trade *model.TradeRecord) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindBySymbolAsc returns every trade for a symbol in chronological order,
// oldest first. The performance tracker walks this to FIFO-match sells
// against prior buys.
func (r *TradeRepository) FindBySymbolAsc(ctx context.Context, symbol string) ([]model.TradeRecord, error) {
	var rows []model.TradeRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// ExistsSince reports whether a fill with the same symbol, side and
// quantity was recorded at or after the given instant. The account stream
// redelivers fills the executor already confirmed by polling; the venue
// timestamp never matches ours exactly, so duplicates are detected within
// a window rather than on the exact timestamp.
func (r *TradeRepository) ExistsSince(ctx context.Context, symbol, side string, qty int64, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRecord{}).
		Where("symbol = ? AND side = ? AND quantity = ? AND timestamp >= ?", symbol, side, qty, since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
