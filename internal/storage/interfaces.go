package storage

import (
	"context"

	"strategy-lab/internal/domain"
)

// BarStore provides read access to ordered market data.
type BarStore interface {
	// FetchBars retrieves bars for (symbol, interval) inner-joined with
	// their indicator rows, ascending by timestamp, no duplicate
	// timestamps. A nil window means the full history. An empty result
	// is not an error.
	FetchBars(ctx context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.BarRecord, error)

	// FetchOHLCV retrieves raw bars without the indicator join,
	// ascending by timestamp.
	FetchOHLCV(ctx context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.Bar, error)
}

// BarWriter ingests raw OHLCV bars. Re-inserting an existing
// (symbol, interval, timestamp) key replaces the row.
type BarWriter interface {
	InsertBars(ctx context.Context, interval domain.Interval, bars []*domain.Bar) error
}

// IndicatorWriter ingests derived indicator rows keyed like bars.
type IndicatorWriter interface {
	InsertIndicators(ctx context.Context, interval domain.Interval, rows []*domain.IndicatorRow) error
}

// BacktestResultStore persists trade rows per caller identity.
type BacktestResultStore interface {
	// Upsert inserts or updates rows keyed by
	// (identity, symbol, interval, start_time_ms, entry_time_ms).
	// Re-running the same strategy over the same window updates
	// existing rows rather than duplicating them.
	Upsert(ctx context.Context, results []*domain.BacktestResult) error

	// GetByIdentity retrieves all rows for an identity, ordered by
	// entry_time_ms ASC.
	GetByIdentity(ctx context.Context, identity string) ([]*domain.BacktestResult, error)
}
