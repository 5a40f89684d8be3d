package domain

import "fmt"

// Interval identifies a supported bar granularity.
// Values match Binance USD-M kline interval strings.
type Interval string

// Supported intervals, minutes through months.
const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

var supportedIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval4h, Interval1d, Interval1w, Interval1M,
}

// SupportedIntervals returns all supported granularities in ascending order.
func SupportedIntervals() []Interval {
	out := make([]Interval, len(supportedIntervals))
	copy(out, supportedIntervals)
	return out
}

// ParseInterval validates s against the supported granularities.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range supportedIntervals {
		if Interval(s) == iv {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unsupported interval %q", s)
}
