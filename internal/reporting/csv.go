package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"strategy-lab/internal/domain"
)

// csvHeader lists the trade columns in export order.
var csvHeader = []string{
	"symbol", "interval", "predicate", "indicators", "risk_reward_ratio",
	"entry_time_ms", "entry_price", "stop_loss", "take_profit",
	"exit_time_ms", "outcome", "profit_rate", "cum_profit_rate",
}

// WriteCSV writes trade rows as UTF-8 CSV with a byte order mark, so
// spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, results []*domain.BacktestResult) error {
	enc := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(enc)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		exit := ""
		if r.ExitTimeMs != nil {
			exit = strconv.FormatInt(*r.ExitTimeMs, 10)
		}
		record := []string{
			r.Symbol,
			string(r.Interval),
			r.Predicate,
			r.Indicators,
			strconv.FormatFloat(r.RiskRewardRatio, 'f', -1, 64),
			strconv.FormatInt(r.EntryTimeMs, 10),
			strconv.FormatFloat(r.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(r.StopLoss, 'f', -1, 64),
			strconv.FormatFloat(r.TakeProfit, 'f', -1, 64),
			exit,
			string(r.Outcome),
			strconv.FormatFloat(r.ProfitRate, 'f', -1, 64),
			strconv.FormatFloat(r.CumProfitRate, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
