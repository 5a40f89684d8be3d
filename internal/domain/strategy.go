package domain

// StopLossMode selects how the stop-loss price is derived at entry.
type StopLossMode string

// Stop-loss mode constants.
const (
	// StopLossLow derives the stop from the entry bar's low.
	StopLossLow StopLossMode = "LOW"
	// StopLossCustom uses a fixed caller-supplied price.
	StopLossCustom StopLossMode = "CUSTOM"
)

// PositionSide is the simulated position direction.
type PositionSide string

// Position side constants.
const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// BarPredicate is an entry condition evaluated against one joined bar.
// Implementations live in the predicate package; the evaluation error is
// non-nil only when the expression references a field the schema does
// not know.
type BarPredicate interface {
	Eval(r *BarRecord) (bool, error)
	String() string
}

// StrategyParams is the per-run value object describing one backtest.
// It has no persistent identity; a run is a pure function of
// (market data snapshot, StrategyParams).
type StrategyParams struct {
	Symbol    string
	Interval  Interval
	Predicate BarPredicate

	// RiskRewardRatio scales the take-profit distance relative to the
	// stop-loss distance. Must be > 0.
	RiskRewardRatio float64

	StopLossMode StopLossMode
	// StopLossValue is required iff StopLossMode is CUSTOM.
	StopLossValue *float64

	// Window optionally restricts entry candidates to [StartMs, EndMs).
	Window *TimeWindow

	Side PositionSide

	// Leverage multiplies per-trade profit rates. Must be >= 1.
	Leverage float64
	// SlippageRate is deducted once per resolved trade, as a fraction
	// of the entry price. Must be >= 0.
	SlippageRate float64
}

// PredicateText returns the textual form of the predicate, or empty.
func (p *StrategyParams) PredicateText() string {
	if p.Predicate == nil {
		return ""
	}
	return p.Predicate.String()
}
