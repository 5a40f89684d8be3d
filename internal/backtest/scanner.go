package backtest

import (
	"sort"

	"strategy-lab/internal/domain"
)

// ExitEvent is the first later bar that touched an exit threshold.
type ExitEvent struct {
	TimestampMs int64
	Low         float64
	High        float64
}

// ScanExits finds, for each entry, the earliest bar strictly after the
// entry whose range touches the stop-loss or take-profit level. The
// returned slice is parallel to entries; a nil element means no later
// bar matched and the position is still open at the end of the data.
//
// Entries and bars must both be ascending by timestamp. Because entry
// times are monotone, the scan start position only moves forward across
// entries; each entry then walks ahead until its first touch.
func ScanExits(entries []*Entry, bars []*domain.BarRecord, side domain.PositionSide) []*ExitEvent {
	exits := make([]*ExitEvent, len(entries))
	cursor := 0
	for i, entry := range entries {
		// Advance the shared cursor past bars at or before this entry.
		for cursor < len(bars) && bars[cursor].TimestampMs <= entry.Bar.TimestampMs {
			cursor++
		}

		for j := cursor; j < len(bars); j++ {
			bar := bars[j]
			if touchesExit(bar, entry, side) {
				exits[i] = &ExitEvent{
					TimestampMs: bar.TimestampMs,
					Low:         bar.Low,
					High:        bar.High,
				}
				break
			}
		}
	}
	return exits
}

// touchesExit reports whether the bar's range crossed either threshold.
// Long positions stop out downward and take profit upward; short
// positions are mirrored.
func touchesExit(bar *domain.BarRecord, entry *Entry, side domain.PositionSide) bool {
	if side == domain.SideShort {
		return bar.High >= entry.StopLossPrice || bar.Low <= entry.TakeProfitPrice
	}
	return bar.Low <= entry.StopLossPrice || bar.High >= entry.TakeProfitPrice
}

// sortEntries orders entries ascending by timestamp. Selection already
// yields this order; the sort is kept cheap for pre-sorted input and
// guards callers that assemble entries themselves.
func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Bar.TimestampMs < entries[j].Bar.TimestampMs
	})
}
