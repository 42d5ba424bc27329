// Package marketdata provides bar storage and the collaborator interfaces
// the diagnostic pipeline reads market state through.
package marketdata

import (
	"context"

	"github.com/aristath/marketdoctor/internal/domain"
)

// BarRepository stores OHLCV bars keyed by (symbol, timeframe, ts_ms).
// Upserts are idempotent; reads return bars ascending by timestamp.
type BarRepository interface {
	LastN(ctx context.Context, symbol string, tf domain.Timeframe, n int) ([]domain.Bar, error)
	BarsBetween(ctx context.Context, symbol string, tf domain.Timeframe, fromMS, toMS int64) ([]domain.Bar, error)
	LastTS(ctx context.Context, symbol string, tf domain.Timeframe) (*int64, error)
	UpsertBar(ctx context.Context, symbol string, tf domain.Timeframe, bar domain.Bar) error
	UpsertBars(ctx context.Context, symbol string, tf domain.Timeframe, bars []domain.Bar) error
}

// DerivativesProvider supplies a best-effort derivatives snapshot for a
// symbol. A nil snapshot with a nil error means no data is available.
type DerivativesProvider interface {
	GetDerivatives(ctx context.Context, symbol string) (*domain.Derivatives, error)
}

// PriceSource supplies a spot price. A nil price with a nil error means the
// source has no quote; callers fall back to the last stored close.
type PriceSource interface {
	SpotPrice(ctx context.Context, symbol string) (*float64, error)
}
