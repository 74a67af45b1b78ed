package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeagent/src/database"
	"tradeagent/src/model"
)

// CandleRepository handles the append-only candle history per symbol.
type CandleRepository struct {
	db *gorm.DB
}

func NewCandleRepository() *CandleRepository {
	logger.WithField("component", "CandleRepository").
		Debug("Creating new CandleRepository with MainDB")

	return &CandleRepository{db: database.MainDB}
}

// NewCandleRepositoryWithDB allows overriding the underlying *gorm.DB
// instance. Useful for tests or custom sessions.
func NewCandleRepositoryWithDB(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

func (r *CandleRepository) Insert(ctx context.Context, candle *model.Candle) error {
	return r.db.WithContext(ctx).Create(candle).Error
}

// GetLast fetches the most recent candle for a symbol.
// Returns (nil, nil) if no candle exists yet.
func (r *CandleRepository) GetLast(ctx context.Context, symbol string) (*model.Candle, error) {
	var candle model.Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		First(&candle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &candle, nil
}

// GetRecent fetches the most recent limit candles for a symbol in ascending
// chronological order.
func (r *CandleRepository) GetRecent(ctx context.Context, symbol string, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.Candle
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order for easier logic
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
