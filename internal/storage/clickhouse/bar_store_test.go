package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	chstore "strategy-lab/internal/storage/clickhouse"
)

func testBar(ts int64, close float64) *domain.Bar {
	return &domain.Bar{
		Symbol:      "BTCUSDT",
		TimestampMs: ts,
		Open:        close - 1,
		High:        close + 2,
		Low:         close - 2,
		Close:       close,
		Volume:      1000,
	}
}

func testIndicatorRow(ts int64) *domain.IndicatorRow {
	return &domain.IndicatorRow{
		Symbol:      "BTCUSDT",
		TimestampMs: ts,
		IndicatorValues: domain.IndicatorValues{
			RSI14: 55, EMA7: 100, EMA21: 99, EMA99: 97,
			MACD: 0.5, MACDSignal: 0.4,
			BBUpper: 104, BBMiddle: 100, BBLower: 96,
		},
	}
}

func TestBarStore_FetchBarsJoinsAndOrders(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewBarStore(conn)

	// Three bars, indicators only for the last two. The first is
	// dropped by the join.
	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{
		testBar(3000, 102), testBar(1000, 100), testBar(2000, 101),
	}))
	require.NoError(t, store.InsertIndicators(ctx, domain.Interval1h, []*domain.IndicatorRow{
		testIndicatorRow(2000), testIndicatorRow(3000),
	}))

	records, err := store.FetchBars(ctx, "BTCUSDT", domain.Interval1h, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(2000), records[0].TimestampMs)
	assert.Equal(t, int64(3000), records[1].TimestampMs)
	assert.InDelta(t, 101.0, records[0].Close, 1e-9)
	assert.InDelta(t, 55.0, records[0].RSI14, 1e-9)
	assert.InDelta(t, 0.4, records[0].MACDSignal, 1e-9)
}

func TestBarStore_FetchBarsWindowHalfOpen(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewBarStore(conn)

	bars := []*domain.Bar{testBar(1000, 100), testBar(2000, 101), testBar(3000, 102)}
	rows := []*domain.IndicatorRow{testIndicatorRow(1000), testIndicatorRow(2000), testIndicatorRow(3000)}
	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, bars))
	require.NoError(t, store.InsertIndicators(ctx, domain.Interval1h, rows))

	window := &domain.TimeWindow{StartMs: 2000, EndMs: 3000}
	records, err := store.FetchBars(ctx, "BTCUSDT", domain.Interval1h, window)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2000), records[0].TimestampMs)
}

func TestBarStore_IntervalIsolation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewBarStore(conn)

	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{testBar(1000, 100)}))
	require.NoError(t, store.InsertIndicators(ctx, domain.Interval1h, []*domain.IndicatorRow{testIndicatorRow(1000)}))
	require.NoError(t, store.InsertBars(ctx, domain.Interval4h, []*domain.Bar{testBar(1000, 200)}))
	require.NoError(t, store.InsertIndicators(ctx, domain.Interval4h, []*domain.IndicatorRow{testIndicatorRow(1000)}))

	records, err := store.FetchBars(ctx, "BTCUSDT", domain.Interval4h, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 200.0, records[0].Close, 1e-9)
}

func TestBarStore_ReinsertReplaces(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewBarStore(conn)

	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{testBar(1000, 100)}))
	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{testBar(1000, 105)}))

	bars, err := store.FetchOHLCV(ctx, "BTCUSDT", domain.Interval1h, nil)
	require.NoError(t, err)
	require.Len(t, bars, 1, "FINAL read must deduplicate re-ingested rows")
}

func TestBarStore_FetchOHLCV(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewBarStore(conn)

	require.NoError(t, store.InsertBars(ctx, domain.Interval1h, []*domain.Bar{
		testBar(2000, 101), testBar(1000, 100),
	}))

	bars, err := store.FetchOHLCV(ctx, "BTCUSDT", domain.Interval1h, nil)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1000), bars[0].TimestampMs)
	assert.InDelta(t, 98.0, bars[1].Low, 1e-9)
	assert.InDelta(t, 1000.0, bars[0].Volume, 1e-9)
}
