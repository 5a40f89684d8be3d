package domain

// BacktestResult is one persisted trade row, partitioned by the opaque
// caller identity. The upsert key is
// (identity, symbol, interval, start_time_ms, entry_time_ms): re-running
// the same strategy over the same window updates rows in place.
type BacktestResult struct {
	Identity string
	Symbol   string
	Interval Interval

	// Strategy metadata recorded with each row.
	Predicate       string // textual predicate form
	Indicators      string // indicator groups the predicate references, or "None"
	RiskRewardRatio float64

	StartTimeMs int64 // window start, 0 when unbounded
	EndTimeMs   int64 // window end, 0 when unbounded

	EntryTimeMs   int64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	ExitTimeMs    *int64
	Outcome       Outcome
	ProfitRate    float64 // percent
	CumProfitRate float64 // percent
}
