package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradeagent/src/model"
	"tradeagent/src/repository"
)

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Position{},
		&model.TradeRecord{},
		&model.TrailingStop{},
		&model.PerformanceRecord{},
	))
	return db
}

func TestPositionRepository_ApplyDelta(t *testing.T) {
	db := setupSQLite(t)
	repo := repository.NewPositionRepositoryWithDB(db)
	ctx := context.Background()

	qty, err := repo.ApplyDelta(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, qty)

	qty, err = repo.ApplyDelta(ctx, "AAPL", 5)
	require.NoError(t, err)
	require.EqualValues(t, 15, qty)

	qty, err = repo.ApplyDelta(ctx, "AAPL", -15)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)

	// The row persists at zero rather than being deleted.
	held, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.EqualValues(t, 0, held)
}

func TestPositionRepository_NeverGoesNegative(t *testing.T) {
	db := setupSQLite(t)
	repo := repository.NewPositionRepositoryWithDB(db)
	ctx := context.Background()

	_, err := repo.ApplyDelta(ctx, "AAPL", 10)
	require.NoError(t, err)

	// Selling more than held clamps at zero instead of underflowing.
	qty, err := repo.ApplyDelta(ctx, "AAPL", -25)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)

	// Same for a sell against a symbol with no row at all.
	qty, err = repo.ApplyDelta(ctx, "TSLA", -5)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)
}

func TestPositionRepository_GetMissingIsZero(t *testing.T) {
	db := setupSQLite(t)
	repo := repository.NewPositionRepositoryWithDB(db)

	qty, err := repo.Get(context.Background(), "NVDA")
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)
}

func TestTrailingStopRepository_UpsertAndDelete(t *testing.T) {
	db := setupSQLite(t)
	repo := repository.NewTrailingStopRepositoryWithDB(db)
	ctx := context.Background()

	stop := &model.TrailingStop{
		Symbol:              "AAPL",
		EntryPrice:          decimal.NewFromInt(100),
		InitialStopPrice:    decimal.NewFromInt(95),
		CurrentStopPrice:    decimal.NewFromInt(95),
		TrailingStepPercent: decimal.NewFromInt(3),
		LastAdjustedAt:      time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		StopOrderID:         "ord-1",
	}
	require.NoError(t, repo.Upsert(ctx, stop))

	got, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.CurrentStopPrice.Equal(decimal.NewFromInt(95)))

	// Ratchet: same symbol, higher stop, new remote order id.
	got.CurrentStopPrice = decimal.RequireFromString("98.94")
	got.StopOrderID = "ord-2"
	require.NoError(t, repo.Upsert(ctx, got))

	again, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, again.CurrentStopPrice.Equal(decimal.RequireFromString("98.94")))
	require.Equal(t, "ord-2", again.StopOrderID)

	var count int64
	require.NoError(t, db.Model(&model.TrailingStop{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "at most one live row per symbol")

	require.NoError(t, repo.Delete(ctx, "AAPL"))
	gone, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestTradeRepository_ExistsSinceDetectsDuplicates(t *testing.T) {
	db := setupSQLite(t)
	repo := repository.NewTradeRepositoryWithDB(db)
	ctx := context.Background()

	ts := time.Date(2025, 6, 2, 14, 35, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, &model.TradeRecord{
		Symbol:    "AAPL",
		Side:      model.TradeSideBuy,
		Quantity:  10,
		Price:     decimal.NewFromInt(100),
		Timestamp: ts,
	}))

	dup, err := repo.ExistsSince(ctx, "AAPL", model.TradeSideBuy, 10, ts.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, dup)

	other, err := repo.ExistsSince(ctx, "AAPL", model.TradeSideSell, 10, ts.Add(-time.Minute))
	require.NoError(t, err)
	require.False(t, other)

	stale, err := repo.ExistsSince(ctx, "AAPL", model.TradeSideBuy, 10, ts.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, stale, "records older than the window are not duplicates")
}
