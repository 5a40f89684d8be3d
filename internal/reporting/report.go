// Package reporting renders stored backtest results as markdown, CSV
// and parquet documents.
package reporting

import (
	"time"

	"strategy-lab/internal/domain"
)

// Report is the renderable view over one caller's stored results.
type Report struct {
	GeneratedAt time.Time
	Identity    string

	// Overall statistics across every stored trade.
	Statistics *domain.Statistics

	// Per (symbol, interval) breakdown, sorted by symbol then interval.
	Groups []GroupSummary

	// Trade rows, entry time ascending.
	Results []*domain.BacktestResult
}

// GroupSummary aggregates the trades of one symbol and interval.
type GroupSummary struct {
	Symbol     string
	Interval   domain.Interval
	Statistics *domain.Statistics
}
