package backtest

import (
	"fmt"

	"strategy-lab/internal/domain"
)

// Entry is a bar selected as a simulated trade's opening point, with
// the stop-loss and take-profit levels derived at selection time.
type Entry struct {
	Bar             domain.BarRecord
	StopLossPrice   float64
	TakeProfitPrice float64
}

// SelectEntries filters joined bars to those where the predicate holds,
// optionally restricted to the params window, and derives each entry's
// stop-loss and take-profit prices. Input bars must be ascending by
// timestamp; output preserves that order.
func SelectEntries(bars []*domain.BarRecord, params *domain.StrategyParams) ([]*Entry, error) {
	var entries []*Entry
	for _, bar := range bars {
		if !params.Window.Contains(bar.TimestampMs) {
			continue
		}

		ok, err := params.Predicate.Eval(bar)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPredicate, err)
		}
		if !ok {
			continue
		}

		stopLoss := bar.Low
		if params.StopLossMode == domain.StopLossCustom {
			stopLoss = *params.StopLossValue
		}

		entries = append(entries, &Entry{
			Bar:             *bar,
			StopLossPrice:   stopLoss,
			TakeProfitPrice: takeProfitPrice(bar.Close, stopLoss, params.RiskRewardRatio, params.Side),
		})
	}
	return entries, nil
}

// takeProfitPrice places the target risk_reward_ratio times the
// stop-loss distance from the entry price, on the profitable side.
func takeProfitPrice(entryPrice, stopLoss, ratio float64, side domain.PositionSide) float64 {
	if side == domain.SideShort {
		return entryPrice - (stopLoss-entryPrice)*ratio
	}
	return entryPrice + (entryPrice-stopLoss)*ratio
}
