// Package indicators computes the technical indicator series joined to
// OHLCV bars for predicate evaluation. All series are aligned to the
// input length, with NaN during warmup.
package indicators

import "math"

// SMA over the last p points.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= x[i-p]
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EMA with smoothing 2/(p+1), seeded with SMA(p).
func EMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	if len(x) < p {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var seed float64
	for i := 0; i < p; i++ {
		seed += x[i]
		if i < p-1 {
			out[i] = math.NaN()
		}
	}
	out[p-1] = seed / float64(p)

	k := 2.0 / float64(p+1)
	for i := p; i < len(x); i++ {
		out[i] = (x[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI with Wilder smoothing over period p. A window with no losses
// reads 100, no gains reads 0.
func RSI(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	if p <= 0 {
		return nil
	}
	if len(x) <= p {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var gain, loss float64
	for i := 1; i <= p; i++ {
		d := x[i] - x[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
		out[i-1] = math.NaN()
	}
	avgGain := gain / float64(p)
	avgLoss := loss / float64(p)
	out[p] = rsiValue(avgGain, avgLoss)

	for i := p + 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		var g, l float64
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(p-1) + g) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + l) / float64(p)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// MeanStd computes a rolling population mean and standard deviation
// over window p.
func MeanStd(x []float64, p int) (mean, std []float64) {
	if p <= 0 {
		return nil, nil
	}
	mean = make([]float64, len(x))
	std = make([]float64, len(x))

	var sum, sum2 float64
	for i := range x {
		sum += x[i]
		sum2 += x[i] * x[i]
		if i < p-1 {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= x[i-p]
			sum2 -= x[i-p] * x[i-p]
		}
		m := sum / float64(p)
		v := sum2/float64(p) - m*m
		if v < 0 {
			v = 0
		}
		mean[i] = m
		std[i] = math.Sqrt(v)
	}
	return mean, std
}
