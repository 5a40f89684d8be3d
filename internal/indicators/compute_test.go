package indicators

import (
	"testing"

	"strategy-lab/internal/domain"
)

func TestCompute_SkipsWarmup(t *testing.T) {
	bars := make([]*domain.Bar, 120)
	for i := range bars {
		bars[i] = &domain.Bar{
			Symbol:      "BTCUSDT",
			TimestampMs: int64(i) * 60_000,
			Close:       100 + float64(i%5),
		}
	}

	rows := Compute("BTCUSDT", bars)
	if len(rows) == 0 {
		t.Fatal("expected rows after warmup")
	}
	// EMA99 is the slowest column; nothing before index 98 is valid.
	if rows[0].TimestampMs < 98*60_000 {
		t.Errorf("expected first row at or after the slowest warmup, got %d", rows[0].TimestampMs)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].TimestampMs >= rows[i].TimestampMs {
			t.Fatalf("rows not ascending at %d", i)
		}
	}
}

func TestCompute_ShortSeriesYieldsNothing(t *testing.T) {
	bars := []*domain.Bar{
		{Symbol: "BTCUSDT", TimestampMs: 0, Close: 100},
		{Symbol: "BTCUSDT", TimestampMs: 60_000, Close: 101},
	}
	if rows := Compute("BTCUSDT", bars); len(rows) != 0 {
		t.Errorf("expected no rows for a series shorter than every warmup, got %d", len(rows))
	}
}
