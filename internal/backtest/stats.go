package backtest

import "strategy-lab/internal/domain"

// Summarize reduces a trade set to win-rate, expectancy and final
// compounded return. OPEN trades are excluded from the denominator;
// empty outcome buckets contribute zero, never NaN.
func Summarize(set *domain.TradeSet) *domain.Statistics {
	if set == nil {
		return &domain.Statistics{}
	}
	return summarize(set.Trades, func(t *domain.Trade) (domain.Outcome, float64, float64) {
		return t.Outcome, t.ProfitRate, t.CumProfitRate
	})
}

// SummarizeResults computes the same statistics over persisted rows.
func SummarizeResults(results []*domain.BacktestResult) *domain.Statistics {
	return summarize(results, func(r *domain.BacktestResult) (domain.Outcome, float64, float64) {
		return r.Outcome, r.ProfitRate, r.CumProfitRate
	})
}

// summarize walks trades in stored (entry-time) order. The final
// cumulative rate is taken from the last element regardless of outcome,
// since OPEN trades carry the running multiplier forward unchanged.
func summarize[T any](trades []T, fields func(T) (domain.Outcome, float64, float64)) *domain.Statistics {
	stats := &domain.Statistics{}
	if len(trades) == 0 {
		return stats
	}

	var tpSum, slSum float64
	for _, t := range trades {
		outcome, rate, cum := fields(t)
		switch outcome {
		case domain.OutcomeTP:
			stats.TPCount++
			tpSum += rate
		case domain.OutcomeSL:
			stats.SLCount++
			slSum += rate
		}
		stats.FinalProfitRate = cum
	}

	stats.TotalCount = stats.TPCount + stats.SLCount
	if stats.TotalCount == 0 {
		return stats
	}

	stats.TPRate = float64(stats.TPCount) * 100 / float64(stats.TotalCount)

	// Expectancy is the count-weighted mean of per-bucket means, which
	// collapses to (tpSum + slSum) / total; empty buckets add zero.
	stats.Expectancy = (tpSum + slSum) / float64(stats.TotalCount)
	return stats
}
