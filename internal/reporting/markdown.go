package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Trades: %d\n\n", len(r.Results)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Resolved Trades | %d |\n", r.Statistics.TotalCount))
	sb.WriteString(fmt.Sprintf("| TP Count | %d |\n", r.Statistics.TPCount))
	sb.WriteString(fmt.Sprintf("| SL Count | %d |\n", r.Statistics.SLCount))
	sb.WriteString(fmt.Sprintf("| TP Rate | %.2f%% |\n", r.Statistics.TPRate))
	sb.WriteString(fmt.Sprintf("| Expectancy | %.4f%% |\n", r.Statistics.Expectancy))
	sb.WriteString(fmt.Sprintf("| Final Profit Rate | %.4f%% |\n", r.Statistics.FinalProfitRate))
	sb.WriteString("\n")

	if len(r.Groups) > 0 {
		sb.WriteString("## By Symbol and Interval\n\n")
		sb.WriteString("| Symbol | Interval | Resolved | TP | SL | TP Rate | Expectancy | Final Profit |\n")
		sb.WriteString("|--------|----------|----------|----|----|---------|------------|-------------|\n")
		for _, g := range r.Groups {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %.2f%% | %.4f%% | %.4f%% |\n",
				g.Symbol,
				g.Interval,
				g.Statistics.TotalCount,
				g.Statistics.TPCount,
				g.Statistics.SLCount,
				g.Statistics.TPRate,
				g.Statistics.Expectancy,
				g.Statistics.FinalProfitRate,
			))
		}
		sb.WriteString("\n")
	}

	if len(r.Results) > 0 {
		sb.WriteString("## Trades\n\n")
		sb.WriteString("| Entry Time (ms) | Symbol | Interval | Entry | Stop | Target | Exit Time (ms) | Outcome | Profit | Cumulative |\n")
		sb.WriteString("|-----------------|--------|----------|-------|------|--------|----------------|---------|--------|------------|\n")
		for _, row := range r.Results {
			exit := "-"
			if row.ExitTimeMs != nil {
				exit = fmt.Sprintf("%d", *row.ExitTimeMs)
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.6f | %.6f | %.6f | %s | %s | %.4f%% | %.4f%% |\n",
				row.EntryTimeMs,
				row.Symbol,
				row.Interval,
				row.EntryPrice,
				row.StopLoss,
				row.TakeProfit,
				exit,
				row.Outcome,
				row.ProfitRate,
				row.CumProfitRate,
			))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
