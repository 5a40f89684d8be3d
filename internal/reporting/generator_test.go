package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage/memory"
)

func seedResults(t *testing.T) *memory.BacktestResultStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewBacktestResultStore()

	exit1 := int64(2000)
	exit2 := int64(4000)
	rows := []*domain.BacktestResult{
		{
			Identity: "user-1", Symbol: "BTCUSDT", Interval: domain.Interval1h,
			Predicate: "close > 0", Indicators: "None", RiskRewardRatio: 2,
			EntryTimeMs: 1000, EntryPrice: 100, StopLoss: 95, TakeProfit: 110,
			ExitTimeMs: &exit1, Outcome: domain.OutcomeTP,
			ProfitRate: 10, CumProfitRate: 10,
		},
		{
			Identity: "user-1", Symbol: "BTCUSDT", Interval: domain.Interval1h,
			Predicate: "close > 0", Indicators: "None", RiskRewardRatio: 2,
			EntryTimeMs: 3000, EntryPrice: 110, StopLoss: 104, TakeProfit: 122,
			ExitTimeMs: &exit2, Outcome: domain.OutcomeSL,
			ProfitRate: -5, CumProfitRate: 4.5,
		},
		{
			Identity: "user-1", Symbol: "ETHUSDT", Interval: domain.Interval4h,
			Predicate: "rsi_14 < 30", Indicators: "RSI", RiskRewardRatio: 3,
			EntryTimeMs: 5000, EntryPrice: 2000, StopLoss: 1900, TakeProfit: 2300,
			Outcome: domain.OutcomeOpen,
		},
		{
			Identity: "user-2", Symbol: "BTCUSDT", Interval: domain.Interval1h,
			Predicate: "close > 0", Indicators: "None", RiskRewardRatio: 2,
			EntryTimeMs: 1000, EntryPrice: 100, StopLoss: 95, TakeProfit: 110,
			ExitTimeMs: &exit1, Outcome: domain.OutcomeSL,
			ProfitRate: -5, CumProfitRate: -5,
		},
	}
	if err := store.Upsert(ctx, rows); err != nil {
		t.Fatalf("seed results: %v", err)
	}
	return store
}

func TestGenerate(t *testing.T) {
	store := seedResults(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(store).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("expected injected clock time, got %v", report.GeneratedAt)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 rows for user-1, got %d", len(report.Results))
	}
	if report.Statistics.TotalCount != 2 || report.Statistics.TPCount != 1 || report.Statistics.SLCount != 1 {
		t.Errorf("unexpected overall statistics: %+v", report.Statistics)
	}

	if len(report.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(report.Groups))
	}
	if report.Groups[0].Symbol != "BTCUSDT" || report.Groups[1].Symbol != "ETHUSDT" {
		t.Errorf("groups not sorted by symbol: %+v", report.Groups)
	}
	if report.Groups[0].Statistics.TotalCount != 2 {
		t.Errorf("BTCUSDT group should hold both resolved trades: %+v", report.Groups[0].Statistics)
	}
	if report.Groups[1].Statistics.TotalCount != 0 {
		t.Errorf("open-only group should have zero resolved trades: %+v", report.Groups[1].Statistics)
	}
}

func TestGenerate_UnknownIdentity(t *testing.T) {
	store := seedResults(t)
	report, err := NewGenerator(store).Generate(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.Results) != 0 || report.Statistics.TotalCount != 0 {
		t.Errorf("expected empty report, got %d rows", len(report.Results))
	}
}

func TestRenderMarkdown(t *testing.T) {
	store := seedResults(t)
	report, err := NewGenerator(store).Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Backtest Report",
		"## Summary",
		"## By Symbol and Interval",
		"## Trades",
		"BTCUSDT",
		"ETHUSDT",
		"| TP Count | 1 |",
		"| SL Count | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// The open ETHUSDT trade has no exit time.
	if !strings.Contains(md, "| - | OPEN |") {
		t.Error("expected dash placeholder for the open trade exit time")
	}
}

func TestWriteCSV(t *testing.T) {
	store := seedResults(t)
	results, err := store.GetByIdentity(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	raw := buf.Bytes()
	bom := []byte{0xEF, 0xBB, 0xBF}
	if !bytes.HasPrefix(raw, bom) {
		t.Fatal("expected UTF-8 byte order mark prefix")
	}

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, bom))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d records", len(records))
	}
	if records[0][0] != "symbol" || records[0][len(records[0])-1] != "cum_profit_rate" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "BTCUSDT" || records[1][10] != "TP" {
		t.Errorf("unexpected first row: %v", records[1])
	}

	// Open trade exports an empty exit time.
	if records[3][9] != "" || records[3][10] != "OPEN" {
		t.Errorf("unexpected open trade row: %v", records[3])
	}
}

func TestWriteParquet(t *testing.T) {
	store := seedResults(t)
	results, err := store.GetByIdentity(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByIdentity failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "trades.parquet")
	if err := WriteParquet(path, results); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}

	rows, err := parquet.ReadFile[parquetTrade](path)
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Symbol != "BTCUSDT" || rows[0].Outcome != "TP" || rows[0].ExitTimeMs == nil {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[2].Outcome != "OPEN" || rows[2].ExitTimeMs != nil {
		t.Errorf("unexpected open row: %+v", rows[2])
	}
}
