package domain

// Outcome labels how a simulated trade resolved.
type Outcome string

// Outcome constants.
const (
	// OutcomeTP means the take-profit threshold was touched first.
	OutcomeTP Outcome = "TP"
	// OutcomeSL means the stop-loss threshold was touched first, or
	// both thresholds were breached on the same bar (stop-loss wins).
	OutcomeSL Outcome = "SL"
	// OutcomeOpen means no later bar touched either threshold.
	OutcomeOpen Outcome = "OPEN"
	// OutcomeUnknown is a defensive fallback kept for storage
	// compatibility. The exit classification is exhaustive, so this
	// value appearing in output indicates a logic defect.
	OutcomeUnknown Outcome = "UNKNOWN"
)

// Resolved reports whether the trade closed at a TP or SL level.
func (o Outcome) Resolved() bool {
	return o == OutcomeTP || o == OutcomeSL
}

// Trade is one simulated trade. Uniquely identified by
// (EntryTimeMs, ExitTimeMs); that pair is also the deduplication key.
// ProfitRate and CumProfitRate are percentage-scaled once the trade is
// part of a TradeSet.
type Trade struct {
	EntryTimeMs   int64
	EntryPrice    float64
	StopLoss      float64
	TakeProfit    float64
	ExitTimeMs    *int64 // nil while the position is still open
	Outcome       Outcome
	ProfitRate    float64
	CumProfitRate float64
}

// TradeSet is the deduplicated, entry-time-ordered result of one run,
// with running compounded return per trade. Built fresh per run and
// never mutated in place.
type TradeSet struct {
	Symbol   string
	Interval Interval
	Trades   []*Trade
}

// Statistics is a read-only summary of a TradeSet. OPEN trades are
// excluded from TotalCount because they have not resolved.
type Statistics struct {
	TotalCount      int     `json:"total_count"`
	TPCount         int     `json:"tp_count"`
	SLCount         int     `json:"sl_count"`
	TPRate          float64 `json:"tp_rate"`
	Expectancy      float64 `json:"expectancy"`
	FinalProfitRate float64 `json:"final_profit_rate"`
}
