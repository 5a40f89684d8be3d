package indicators

import (
	"math"

	"strategy-lab/internal/domain"
)

// Standard parameterizations for the joined indicator columns.
const (
	rsiPeriod   = 14
	emaFast     = 7
	emaMid      = 21
	emaSlow     = 99
	macdFast    = 12
	macdSlow    = 26
	macdSignalP = 9
	bollPeriod  = 20
	bollStdDevs = 2.0
)

// MACD returns the MACD line (EMA12 - EMA26) and its 9-period signal.
func MACD(x []float64) (line, signal []float64) {
	fast := EMA(x, macdFast)
	slow := EMA(x, macdSlow)
	line = make([]float64, len(x))
	for i := range x {
		line[i] = fast[i] - slow[i]
	}

	// Signal smooths only the valid portion of the line.
	signal = make([]float64, len(x))
	start := macdSlow - 1
	if start >= len(x) {
		for i := range signal {
			signal[i] = math.NaN()
		}
		return line, signal
	}
	tail := EMA(line[start:], macdSignalP)
	for i := 0; i < start; i++ {
		signal[i] = math.NaN()
	}
	copy(signal[start:], tail)
	return line, signal
}

// Bollinger returns the 20-period bands at 2 standard deviations.
func Bollinger(x []float64) (upper, middle, lower []float64) {
	mean, std := MeanStd(x, bollPeriod)
	upper = make([]float64, len(x))
	lower = make([]float64, len(x))
	for i := range x {
		upper[i] = mean[i] + bollStdDevs*std[i]
		lower[i] = mean[i] - bollStdDevs*std[i]
	}
	return upper, mean, lower
}

// Compute derives the full indicator row set from bars, which must be
// ascending by timestamp. Rows where any indicator is still warming up
// are omitted, so a fetch joining bars to these rows starts at the
// first fully-valid bar.
func Compute(symbol string, bars []*domain.Bar) []*domain.IndicatorRow {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	rsi := RSI(closes, rsiPeriod)
	ema7 := EMA(closes, emaFast)
	ema21 := EMA(closes, emaMid)
	ema99 := EMA(closes, emaSlow)
	macd, macdSignal := MACD(closes)
	bbUpper, bbMiddle, bbLower := Bollinger(closes)

	var rows []*domain.IndicatorRow
	for i, b := range bars {
		v := domain.IndicatorValues{
			RSI14:      rsi[i],
			EMA7:       ema7[i],
			EMA21:      ema21[i],
			EMA99:      ema99[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
			BBUpper:    bbUpper[i],
			BBMiddle:   bbMiddle[i],
			BBLower:    bbLower[i],
		}
		if hasNaN(v) {
			continue
		}
		rows = append(rows, &domain.IndicatorRow{
			Symbol:          symbol,
			TimestampMs:     b.TimestampMs,
			IndicatorValues: v,
		})
	}
	return rows
}

func hasNaN(v domain.IndicatorValues) bool {
	for _, f := range []float64{
		v.RSI14, v.EMA7, v.EMA21, v.EMA99,
		v.MACD, v.MACDSignal, v.BBUpper, v.BBMiddle, v.BBLower,
	} {
		if math.IsNaN(f) {
			return true
		}
	}
	return false
}
