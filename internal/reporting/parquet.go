package reporting

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"strategy-lab/internal/domain"
)

// parquetTrade is the parquet row schema for one stored trade.
type parquetTrade struct {
	Symbol          string  `parquet:"symbol"`
	Interval        string  `parquet:"interval"`
	Predicate       string  `parquet:"predicate"`
	Indicators      string  `parquet:"indicators"`
	RiskRewardRatio float64 `parquet:"risk_reward_ratio"`
	EntryTimeMs     int64   `parquet:"entry_time_ms"`
	EntryPrice      float64 `parquet:"entry_price"`
	StopLoss        float64 `parquet:"stop_loss"`
	TakeProfit      float64 `parquet:"take_profit"`
	ExitTimeMs      *int64  `parquet:"exit_time_ms,optional"`
	Outcome         string  `parquet:"outcome"`
	ProfitRate      float64 `parquet:"profit_rate"`
	CumProfitRate   float64 `parquet:"cum_profit_rate"`
}

// WriteParquet writes trade rows to a parquet file at path.
func WriteParquet(path string, results []*domain.BacktestResult) error {
	rows := make([]parquetTrade, len(results))
	for i, r := range results {
		rows[i] = parquetTrade{
			Symbol:          r.Symbol,
			Interval:        string(r.Interval),
			Predicate:       r.Predicate,
			Indicators:      r.Indicators,
			RiskRewardRatio: r.RiskRewardRatio,
			EntryTimeMs:     r.EntryTimeMs,
			EntryPrice:      r.EntryPrice,
			StopLoss:        r.StopLoss,
			TakeProfit:      r.TakeProfit,
			Outcome:         string(r.Outcome),
			ProfitRate:      r.ProfitRate,
			CumProfitRate:   r.CumProfitRate,
		}
		if r.ExitTimeMs != nil {
			exit := *r.ExitTimeMs
			rows[i].ExitTimeMs = &exit
		}
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet file: %w", err)
	}
	return nil
}
