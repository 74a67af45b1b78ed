package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradeagent/src/database"
	"tradeagent/src/model"
)

// PerformanceRepository stores cumulative performance snapshots; the most
// recent row is the current summary.
type PerformanceRepository struct {
	db *gorm.DB
}

func NewPerformanceRepository() *PerformanceRepository {
	logger.WithField("component", "PerformanceRepository").
		Debug("Creating new PerformanceRepository with MainDB")

	return &PerformanceRepository{db: database.MainDB}
}

func NewPerformanceRepositoryWithDB(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// Latest returns the newest snapshot, or (nil, nil) before the first trade.
func (r *PerformanceRepository) Latest(ctx context.Context) (*model.PerformanceRecord, error) {
	var rec model.PerformanceRecord
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PerformanceRepository) Append(ctx context.Context, rec *model.PerformanceRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}
