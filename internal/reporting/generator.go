package reporting

import (
	"context"
	"sort"
	"time"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// Generator produces reports from stored backtest results.
type Generator struct {
	results storage.BacktestResultStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(results storage.BacktestResultStore) *Generator {
	return &Generator{
		results: results,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for one caller identity.
func (g *Generator) Generate(ctx context.Context, identity string) (*Report, error) {
	results, err := g.results.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Identity:    identity,
		Statistics:  backtest.SummarizeResults(results),
		Groups:      groupSummaries(results),
		Results:     results,
	}, nil
}

type groupKey struct {
	symbol   string
	interval domain.Interval
}

func groupSummaries(results []*domain.BacktestResult) []GroupSummary {
	grouped := make(map[groupKey][]*domain.BacktestResult)
	for _, r := range results {
		key := groupKey{symbol: r.Symbol, interval: r.Interval}
		grouped[key] = append(grouped[key], r)
	}

	keys := make([]groupKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}
		return keys[i].interval < keys[j].interval
	})

	groups := make([]GroupSummary, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, GroupSummary{
			Symbol:     key.symbol,
			Interval:   key.interval,
			Statistics: backtest.SummarizeResults(grouped[key]),
		})
	}
	return groups
}
