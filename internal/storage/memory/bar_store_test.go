package memory

import (
	"context"
	"testing"

	"strategy-lab/internal/domain"
)

func seedBars(t *testing.T, store *BarStore, withIndicators bool, timestamps ...int64) {
	t.Helper()
	ctx := context.Background()

	var bars []*domain.Bar
	var rows []*domain.IndicatorRow
	for _, ts := range timestamps {
		bars = append(bars, &domain.Bar{
			Symbol: "BTCUSDT", TimestampMs: ts,
			Open: 100, High: 110, Low: 95, Close: 105, Volume: 10,
		})
		rows = append(rows, &domain.IndicatorRow{
			Symbol: "BTCUSDT", TimestampMs: ts,
			IndicatorValues: domain.IndicatorValues{RSI14: 50},
		})
	}
	if err := store.InsertBars(ctx, domain.Interval1h, bars); err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}
	if withIndicators {
		if err := store.InsertIndicators(ctx, domain.Interval1h, rows); err != nil {
			t.Fatalf("InsertIndicators failed: %v", err)
		}
	}
}

func TestBarStore_FetchBarsOrdered(t *testing.T) {
	store := NewBarStore()
	seedBars(t, store, true, 3000, 1000, 2000)

	records, err := store.FetchBars(context.Background(), "BTCUSDT", domain.Interval1h, nil)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].TimestampMs <= records[i-1].TimestampMs {
			t.Errorf("records not strictly ascending at index %d", i)
		}
	}
}

func TestBarStore_InnerJoinDropsBarsWithoutIndicators(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()
	seedBars(t, store, true, 1000, 2000)

	// A bar with no indicator row must not appear in the join.
	err := store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 3000, Close: 105},
	})
	if err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}

	records, err := store.FetchBars(ctx, "BTCUSDT", domain.Interval1h, nil)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 joined records, got %d", len(records))
	}

	bars, err := store.FetchOHLCV(ctx, "BTCUSDT", domain.Interval1h, nil)
	if err != nil {
		t.Fatalf("FetchOHLCV failed: %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("expected 3 raw bars, got %d", len(bars))
	}
}

func TestBarStore_WindowIsHalfOpen(t *testing.T) {
	store := NewBarStore()
	seedBars(t, store, true, 1000, 2000, 3000)

	window := &domain.TimeWindow{StartMs: 1000, EndMs: 3000}
	records, err := store.FetchBars(context.Background(), "BTCUSDT", domain.Interval1h, window)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records in [1000, 3000), got %d", len(records))
	}
	if records[0].TimestampMs != 1000 || records[1].TimestampMs != 2000 {
		t.Errorf("unexpected timestamps: %d, %d", records[0].TimestampMs, records[1].TimestampMs)
	}
}

func TestBarStore_ReinsertReplaces(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()
	seedBars(t, store, true, 1000)

	err := store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 1000, Close: 999},
	})
	if err != nil {
		t.Fatalf("InsertBars failed: %v", err)
	}

	records, err := store.FetchBars(ctx, "BTCUSDT", domain.Interval1h, nil)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after replace, got %d", len(records))
	}
	if records[0].Close != 999 {
		t.Errorf("expected replaced close 999, got %f", records[0].Close)
	}
}

func TestBarStore_IntervalIsolation(t *testing.T) {
	store := NewBarStore()
	seedBars(t, store, true, 1000)

	records, err := store.FetchBars(context.Background(), "BTCUSDT", domain.Interval4h, nil)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for other interval, got %d", len(records))
	}
}
