package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

type barKey struct {
	interval    domain.Interval
	symbol      string
	timestampMs int64
}

// BarStore is an in-memory implementation of storage.BarStore,
// storage.BarWriter and storage.IndicatorWriter, used by tests and the
// --use-memory mode.
type BarStore struct {
	mu         sync.RWMutex
	bars       map[barKey]*domain.Bar
	indicators map[barKey]*domain.IndicatorRow
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		bars:       make(map[barKey]*domain.Bar),
		indicators: make(map[barKey]*domain.IndicatorRow),
	}
}

// InsertBars adds or replaces bars keyed by (symbol, interval, timestamp).
func (s *BarStore) InsertBars(_ context.Context, interval domain.Interval, bars []*domain.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		dup := *b
		s.bars[barKey{interval, b.Symbol, b.TimestampMs}] = &dup
	}
	return nil
}

// InsertIndicators adds or replaces indicator rows keyed like bars.
func (s *BarStore) InsertIndicators(_ context.Context, interval domain.Interval, rows []*domain.IndicatorRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		dup := *r
		s.indicators[barKey{interval, r.Symbol, r.TimestampMs}] = &dup
	}
	return nil
}

// FetchBars returns bars inner-joined with indicator rows, ascending by
// timestamp. Bars without an indicator row are dropped by the join.
func (s *BarStore) FetchBars(_ context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.BarRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*domain.BarRecord
	for k, b := range s.bars {
		if k.interval != interval || k.symbol != symbol || !window.Contains(k.timestampMs) {
			continue
		}
		ind, ok := s.indicators[k]
		if !ok {
			continue
		}
		records = append(records, &domain.BarRecord{
			Bar:             *b,
			IndicatorValues: ind.IndicatorValues,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].TimestampMs < records[j].TimestampMs
	})
	return records, nil
}

// FetchOHLCV returns raw bars ascending by timestamp.
func (s *BarStore) FetchOHLCV(_ context.Context, symbol string, interval domain.Interval, window *domain.TimeWindow) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bars []*domain.Bar
	for k, b := range s.bars {
		if k.interval != interval || k.symbol != symbol || !window.Contains(k.timestampMs) {
			continue
		}
		dup := *b
		bars = append(bars, &dup)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].TimestampMs < bars[j].TimestampMs
	})
	return bars, nil
}

// Compile-time interface checks.
var (
	_ storage.BarStore        = (*BarStore)(nil)
	_ storage.BarWriter       = (*BarStore)(nil)
	_ storage.IndicatorWriter = (*BarStore)(nil)
)
