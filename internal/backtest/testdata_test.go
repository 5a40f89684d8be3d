package backtest

import (
	"testing"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/predicate"
)

// record builds a joined bar with neutral indicator values.
func record(ts int64, open, high, low, close float64) *domain.BarRecord {
	return &domain.BarRecord{
		Bar: domain.Bar{
			Symbol:      "BTCUSDT",
			TimestampMs: ts,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       close,
			Volume:      100,
		},
		IndicatorValues: domain.IndicatorValues{RSI14: 50},
	}
}

// longParams returns LONG params selecting every bar, rr=2, stop at low.
func longParams(t *testing.T) *domain.StrategyParams {
	t.Helper()
	expr, err := predicate.Parse("close > 0")
	if err != nil {
		t.Fatalf("parse predicate: %v", err)
	}
	return &domain.StrategyParams{
		Symbol:          "BTCUSDT",
		Interval:        domain.Interval1h,
		Predicate:       expr,
		RiskRewardRatio: 2,
		StopLossMode:    domain.StopLossLow,
		Side:            domain.SideLong,
		Leverage:        1,
	}
}
