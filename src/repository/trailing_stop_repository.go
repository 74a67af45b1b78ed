package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeagent/src/database"
	"tradeagent/src/model"
)

// TrailingStopRepository manages the one live protective-stop row per symbol.
type TrailingStopRepository struct {
	db *gorm.DB
}

func NewTrailingStopRepository() *TrailingStopRepository {
	logger.WithField("component", "TrailingStopRepository").
		Debug("Creating new TrailingStopRepository with MainDB")

	return &TrailingStopRepository{db: database.MainDB}
}

func NewTrailingStopRepositoryWithDB(db *gorm.DB) *TrailingStopRepository {
	return &TrailingStopRepository{db: db}
}

// Get fetches the live trailing stop for a symbol.
// Returns (nil, nil) when the symbol has none.
func (r *TrailingStopRepository) Get(ctx context.Context, symbol string) (*model.TrailingStop, error) {
	var stop model.TrailingStop
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&stop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stop, nil
}

// Upsert inserts the row on first placement and updates it on every ratchet.
func (r *TrailingStopRepository) Upsert(ctx context.Context, stop *model.TrailingStop) error {
	existing, err := r.Get(ctx, stop.Symbol)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.WithContext(ctx).Create(stop).Error
	}
	stop.ID = existing.ID
	return r.db.WithContext(ctx).Save(stop).Error
}

// Delete removes the trailing stop for a symbol once the position closes.
func (r *TrailingStopRepository) Delete(ctx context.Context, symbol string) error {
	return r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&model.TrailingStop{}).Error
}
