package clickhouse

import (
	"context"
	"fmt"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// BarStore implements storage.BarStore, storage.BarWriter and
// storage.IndicatorWriter using ClickHouse. Both tables are
// ReplacingMergeTree keyed by (interval, symbol, timestamp_ms), so
// re-ingesting a range replaces rows rather than duplicating them.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface checks.
var (
	_ storage.BarStore        = (*BarStore)(nil)
	_ storage.BarWriter       = (*BarStore)(nil)
	_ storage.IndicatorWriter = (*BarStore)(nil)
)

// InsertBars adds OHLCV rows in one batch.
func (s *BarStore) InsertBars(ctx context.Context, interval domain.Interval, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, interval, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			b.Symbol, string(interval), uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// InsertIndicators adds indicator rows in one batch.
func (s *BarStore) InsertIndicators(ctx context.Context, interval domain.Interval, rows []*domain.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO indicators (
			symbol, interval, timestamp_ms,
			rsi_14, ema_7, ema_21, ema_99,
			macd, macd_signal, bb_upper, bb_middle, bb_lower
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			r.Symbol, string(interval), uint64(r.TimestampMs),
			r.RSI14, r.EMA7, r.EMA21, r.EMA99,
			r.MACD, r.MACDSignal, r.BBUpper, r.BBMiddle, r.BBLower,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// FetchBars retrieves bars inner-joined with their indicator rows,
// ordered by timestamp ASC. Bars without a matching indicator row are
// dropped by the join, which skips the indicator warmup prefix.
func (s *BarStore) FetchBars(ctx context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.BarRecord, error) {
	query := `
		SELECT
			b.symbol, b.timestamp_ms, b.open, b.high, b.low, b.close, b.volume,
			i.rsi_14, i.ema_7, i.ema_21, i.ema_99,
			i.macd, i.macd_signal, i.bb_upper, i.bb_middle, i.bb_lower
		FROM bars AS b FINAL
		INNER JOIN indicators AS i FINAL
			ON i.symbol = b.symbol
			AND i.interval = b.interval
			AND i.timestamp_ms = b.timestamp_ms
		WHERE b.symbol = ? AND b.interval = ?
	`
	args := []interface{}{symbol, string(interval)}
	query, args = appendWindow(query, args, "b.timestamp_ms", window)
	query += ` ORDER BY b.timestamp_ms ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query joined bars: %w", err)
	}
	defer rows.Close()

	return scanBarRecords(rows)
}

// FetchOHLCV retrieves raw bars without indicators, timestamp ASC.
func (s *BarStore) FetchOHLCV(ctx context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.Bar, error) {
	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume
		FROM bars FINAL
		WHERE symbol = ? AND interval = ?
	`
	args := []interface{}{symbol, string(interval)}
	query, args = appendWindow(query, args, "timestamp_ms", window)
	query += ` ORDER BY timestamp_ms ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// appendWindow adds half-open [start, end) bounds; a zero end means
// unbounded.
func appendWindow(query string, args []interface{}, column string, window *domain.TimeWindow) (string, []interface{}) {
	if window == nil {
		return query, args
	}
	if window.StartMs > 0 {
		query += fmt.Sprintf(" AND %s >= ?", column)
		args = append(args, uint64(window.StartMs))
	}
	if window.EndMs > 0 {
		query += fmt.Sprintf(" AND %s < ?", column)
		args = append(args, uint64(window.EndMs))
	}
	return query, args
}

// scanBarRecords scans joined rows into BarRecords.
func scanBarRecords(rows chRows) ([]*domain.BarRecord, error) {
	var records []*domain.BarRecord

	for rows.Next() {
		var r domain.BarRecord
		var timestampMs uint64

		err := rows.Scan(
			&r.Symbol, &timestampMs, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume,
			&r.RSI14, &r.EMA7, &r.EMA21, &r.EMA99,
			&r.MACD, &r.MACDSignal, &r.BBUpper, &r.BBMiddle, &r.BBLower,
		)
		if err != nil {
			return nil, fmt.Errorf("scan joined bar row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate joined bar rows: %w", err)
	}

	return records, nil
}

// scanBars scans raw OHLCV rows.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		var timestampMs uint64

		err := rows.Scan(
			&b.Symbol, &timestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
