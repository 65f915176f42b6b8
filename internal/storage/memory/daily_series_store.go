package memory

import (
	"context"
	"sync"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/storage"
)

// DailySeriesStore is an in-memory implementation of storage.DailySeriesStore.
type DailySeriesStore struct {
	mu   sync.RWMutex
	data map[seriesKey][]domain.DailySeriesPoint
}

type seriesKey struct {
	account string
	kind    domain.SeriesKind
}

// NewDailySeriesStore creates a new in-memory daily series store.
func NewDailySeriesStore() *DailySeriesStore {
	return &DailySeriesStore{
		data: make(map[seriesKey][]domain.DailySeriesPoint),
	}
}

// Compile-time interface check.
var _ storage.DailySeriesStore = (*DailySeriesStore)(nil)

// Replace stores a copy of points for (account, kind).
func (s *DailySeriesStore) Replace(_ context.Context, account string, kind domain.SeriesKind, points []domain.DailySeriesPoint) error {
	if account == "" || !kind.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[seriesKey{account, kind}] = append([]domain.DailySeriesPoint(nil), points...)
	return nil
}

// Get retrieves a copy of the stored series.
func (s *DailySeriesStore) Get(_ context.Context, account string, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.DailySeriesPoint{}, s.data[seriesKey{account, kind}]...), nil
}
