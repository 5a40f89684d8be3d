package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

type resultKey struct {
	identity    string
	symbol      string
	interval    domain.Interval
	startTimeMs int64
	entryTimeMs int64
}

// BacktestResultStore is an in-memory implementation of
// storage.BacktestResultStore.
type BacktestResultStore struct {
	mu   sync.RWMutex
	data map[resultKey]*domain.BacktestResult
}

// NewBacktestResultStore creates a new in-memory result store.
func NewBacktestResultStore() *BacktestResultStore {
	return &BacktestResultStore{
		data: make(map[resultKey]*domain.BacktestResult),
	}
}

// Upsert inserts or replaces rows by their composite key.
func (s *BacktestResultStore) Upsert(_ context.Context, results []*domain.BacktestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range results {
		if r == nil || r.Identity == "" || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		dup := *r
		if r.ExitTimeMs != nil {
			exit := *r.ExitTimeMs
			dup.ExitTimeMs = &exit
		}
		s.data[resultKey{r.Identity, r.Symbol, r.Interval, r.StartTimeMs, r.EntryTimeMs}] = &dup
	}
	return nil
}

// GetByIdentity retrieves all rows for an identity, entry_time ASC.
func (s *BacktestResultStore) GetByIdentity(_ context.Context, identity string) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*domain.BacktestResult
	for _, r := range s.data {
		if r.Identity != identity {
			continue
		}
		dup := *r
		if r.ExitTimeMs != nil {
			exit := *r.ExitTimeMs
			dup.ExitTimeMs = &exit
		}
		results = append(results, &dup)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].EntryTimeMs < results[j].EntryTimeMs
	})
	return results, nil
}

var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)
