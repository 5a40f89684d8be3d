package backtest

import "strategy-lab/internal/domain"

// Classify turns an (entry, exit-or-nil) pair into a trade record with
// fraction-unit profit rate. Pure function of its inputs; percentage
// scaling happens later in BuildTradeSet.
//
// When a single bar breaches both thresholds, the stop-loss wins: the
// intra-bar ordering of high and low is unknown from OHLCV alone, so
// the worst case within the bar is assumed.
func Classify(entry *Entry, exit *ExitEvent, params *domain.StrategyParams) *domain.Trade {
	trade := &domain.Trade{
		EntryTimeMs: entry.Bar.TimestampMs,
		EntryPrice:  entry.Bar.Close,
		StopLoss:    entry.StopLossPrice,
		TakeProfit:  entry.TakeProfitPrice,
		Outcome:     classifyOutcome(entry, exit, params.Side),
	}
	if exit != nil {
		exitTime := exit.TimestampMs
		trade.ExitTimeMs = &exitTime
	}
	trade.ProfitRate = profitRate(trade, params)
	return trade
}

func classifyOutcome(entry *Entry, exit *ExitEvent, side domain.PositionSide) domain.Outcome {
	if exit == nil {
		return domain.OutcomeOpen
	}
	if side == domain.SideShort {
		switch {
		case exit.High >= entry.StopLossPrice:
			return domain.OutcomeSL
		case exit.Low <= entry.TakeProfitPrice:
			return domain.OutcomeTP
		}
		return domain.OutcomeUnknown
	}
	switch {
	case exit.Low <= entry.StopLossPrice:
		return domain.OutcomeSL
	case exit.High >= entry.TakeProfitPrice:
		return domain.OutcomeTP
	}
	return domain.OutcomeUnknown
}

// profitRate computes the fraction-unit return of a trade. Leverage and
// slippage apply here so persisted and in-memory rates always agree.
func profitRate(trade *domain.Trade, params *domain.StrategyParams) float64 {
	if trade.EntryPrice == 0 || !trade.Outcome.Resolved() {
		return 0
	}

	var exitPrice float64
	switch trade.Outcome {
	case domain.OutcomeTP:
		exitPrice = trade.TakeProfit
	case domain.OutcomeSL:
		exitPrice = trade.StopLoss
	}

	raw := (exitPrice - trade.EntryPrice) / trade.EntryPrice
	if params.Side == domain.SideShort {
		raw = -raw
	}

	leverage := params.Leverage
	if leverage == 0 {
		leverage = 1
	}
	return (raw - params.SlippageRate) * leverage
}
