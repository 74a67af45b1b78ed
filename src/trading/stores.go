package trading

import (
	"context"
	"time"

	"tradeagent/src/model"
)

// Narrow views over the repositories. The concrete gorm repositories in
// src/repository satisfy these; tests plug in fakes.

type candleStore interface {
	GetRecent(ctx context.Context, symbol string, limit int) ([]model.Candle, error)
	GetLast(ctx context.Context, symbol string) (*model.Candle, error)
}

type positionStore interface {
	Get(ctx context.Context, symbol string) (int64, error)
	ApplyDelta(ctx context.Context, symbol string, delta int64) (int64, error)
}

type tradeStore interface {
	Insert(ctx context.Context, trade *model.TradeRecord) error
	FindBySymbolAsc(ctx context.Context, symbol string) ([]model.TradeRecord, error)
	ExistsSince(ctx context.Context, symbol, side string, qty int64, since time.Time) (bool, error)
}

type stopStore interface {
	Get(ctx context.Context, symbol string) (*model.TrailingStop, error)
	Upsert(ctx context.Context, stop *model.TrailingStop) error
	Delete(ctx context.Context, symbol string) error
}

type performanceStore interface {
	Latest(ctx context.Context) (*model.PerformanceRecord, error)
	Append(ctx context.Context, rec *model.PerformanceRecord) error
}
