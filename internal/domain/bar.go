package domain

// Bar represents one OHLCV record for a fixed time bucket.
// Corresponds to one row of the bars table; unique per (symbol, interval, timestamp_ms).
type Bar struct {
	Symbol      string  // trading pair, e.g. BTCUSDT
	TimestampMs int64   // bucket open time, Unix milliseconds
	Open        float64 // open price
	High        float64 // highest price within the bucket
	Low         float64 // lowest price within the bucket
	Close       float64 // close price
	Volume      float64 // traded base volume
}

// IndicatorValues holds the derived indicator columns computed for one bar.
type IndicatorValues struct {
	RSI14      float64 // relative strength index, period 14
	EMA7       float64 // exponential moving average, period 7
	EMA21      float64 // exponential moving average, period 21
	EMA99      float64 // exponential moving average, period 99
	MACD       float64 // MACD line (EMA12 - EMA26)
	MACDSignal float64 // signal line (EMA9 of MACD)
	BBUpper    float64 // Bollinger upper band (SMA20 + 2*stddev)
	BBMiddle   float64 // Bollinger middle band (SMA20)
	BBLower    float64 // Bollinger lower band (SMA20 - 2*stddev)
}

// IndicatorRow keys IndicatorValues by (symbol, timestamp_ms) for storage.
type IndicatorRow struct {
	Symbol      string
	TimestampMs int64
	IndicatorValues
}

// BarRecord is a Bar inner-joined with its indicator values.
// Bars without an indicator row (insufficient warm-up history) never
// appear as BarRecords.
type BarRecord struct {
	Bar
	IndicatorValues
}

// TimeWindow is a half-open [StartMs, EndMs) filter over bar timestamps.
// A zero EndMs means unbounded on the right.
type TimeWindow struct {
	StartMs int64
	EndMs   int64
}

// Contains reports whether ts falls inside the window.
func (w *TimeWindow) Contains(ts int64) bool {
	if w == nil {
		return true
	}
	if ts < w.StartMs {
		return false
	}
	if w.EndMs != 0 && ts >= w.EndMs {
		return false
	}
	return true
}
