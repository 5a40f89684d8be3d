package backtest

import (
	"sort"

	"strategy-lab/internal/domain"
)

type dedupKey struct {
	entryTimeMs int64
	exitTimeMs  int64
	open        bool
}

// BuildTradeSet deduplicates raw trades on (entry_time, exit_time)
// keeping the first occurrence in input order, sorts ascending by entry
// time, compounds the running return, and scales both rates to percent.
//
// Compounding reinvests the entire running equity into each successive
// trade: multiplier *= (1 + profit_rate), cumulative = multiplier - 1.
// Input profit rates must be fractions; output rates are percent.
func BuildTradeSet(symbol string, interval domain.Interval, raw []*domain.Trade) *domain.TradeSet {
	set := &domain.TradeSet{Symbol: symbol, Interval: interval}
	if len(raw) == 0 {
		return set
	}

	seen := make(map[dedupKey]struct{}, len(raw))
	for _, t := range raw {
		k := dedupKey{entryTimeMs: t.EntryTimeMs}
		if t.ExitTimeMs != nil {
			k.exitTimeMs = *t.ExitTimeMs
		} else {
			k.open = true
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		clone := *t
		if t.ExitTimeMs != nil {
			exit := *t.ExitTimeMs
			clone.ExitTimeMs = &exit
		}
		set.Trades = append(set.Trades, &clone)
	}

	sort.SliceStable(set.Trades, func(i, j int) bool {
		return set.Trades[i].EntryTimeMs < set.Trades[j].EntryTimeMs
	})

	multiplier := 1.0
	for _, t := range set.Trades {
		multiplier *= 1 + t.ProfitRate
		t.CumProfitRate = (multiplier - 1) * 100
		t.ProfitRate *= 100
	}
	return set
}
