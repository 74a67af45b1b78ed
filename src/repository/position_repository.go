package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeagent/src/database"
	"tradeagent/src/model"
)

// PositionRepository manages the durable share count per symbol.
// Quantities are clamped so they can never go negative.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	logger.WithField("component", "PositionRepository").
		Debug("Creating new PositionRepository with MainDB")

	return &PositionRepository{db: database.MainDB}
}

func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Get returns the held quantity for a symbol. A missing row means zero.
func (r *PositionRepository) Get(ctx context.Context, symbol string) (int64, error) {
	var pos model.Position
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&pos).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return pos.Quantity, nil
}

// ApplyDelta adjusts the position by delta shares and returns the new
// quantity. A delta that would take the position below zero is clamped to
// zero; the row persists at zero rather than being deleted.
func (r *PositionRepository) ApplyDelta(ctx context.Context, symbol string, delta int64) (int64, error) {
	var pos model.Position
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&pos).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		newQty := delta
		if newQty < 0 {
			logger.WithFields(logger.Fields{
				"symbol": symbol,
				"delta":  delta,
			}).Warn("sell delta on flat position clamped to zero")
			newQty = 0
		}
		pos = model.Position{Symbol: symbol, Quantity: newQty}
		if err := r.db.WithContext(ctx).Create(&pos).Error; err != nil {
			return 0, err
		}
		return newQty, nil

	case err != nil:
		return 0, err
	}

	newQty := pos.Quantity + delta
	if newQty < 0 {
		logger.WithFields(logger.Fields{
			"symbol":  symbol,
			"held":    pos.Quantity,
			"delta":   delta,
			"clamped": 0,
		}).Warn("position delta would underflow, clamping to zero")
		newQty = 0
	}

	if err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("symbol = ?", symbol).
		Update("quantity", newQty).Error; err != nil {
		return 0, err
	}
	return newQty, nil
}

// All returns every position row, open or flat.
func (r *PositionRepository) All(ctx context.Context) ([]model.Position, error) {
	var rows []model.Position
	err := r.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error
	return rows, err
}
