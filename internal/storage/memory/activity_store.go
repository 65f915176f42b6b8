package memory

import (
	"context"
	"sort"
	"sync"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.NormalizedActivity // account -> id -> activity
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string]map[string]*domain.NormalizedActivity),
	}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// InsertBulk archives activities, skipping ids already stored for account.
func (s *ActivityStore) InsertBulk(_ context.Context, account string, activities []*domain.NormalizedActivity) (int, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}
	for _, a := range activities {
		if a == nil || a.ID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.data[account]
	if !ok {
		byID = make(map[string]*domain.NormalizedActivity)
		s.data[account] = byID
	}

	inserted := 0
	for _, a := range activities {
		if _, exists := byID[a.ID]; exists {
			continue
		}
		byID[a.ID] = a
		inserted++
	}
	return inserted, nil
}

// Upsert archives activities, replacing ids already stored for account.
func (s *ActivityStore) Upsert(_ context.Context, account string, activities []*domain.NormalizedActivity) error {
	if account == "" {
		return storage.ErrInvalidInput
	}
	for _, a := range activities {
		if a == nil || a.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.data[account]
	if !ok {
		byID = make(map[string]*domain.NormalizedActivity)
		s.data[account] = byID
	}
	for _, a := range activities {
		byID[a.ID] = a
	}
	return nil
}

// GetByID retrieves one archived activity.
func (s *ActivityStore) GetByID(_ context.Context, account, id string) (*domain.NormalizedActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[account][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

// GetByAccount retrieves archived activities newest first.
func (s *ActivityStore) GetByAccount(_ context.Context, account string, limit int) ([]*domain.NormalizedActivity, error) {
	s.mu.RLock()
	result := make([]*domain.NormalizedActivity, 0, len(s.data[account]))
	for _, a := range s.data[account] {
		result = append(result, a)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return normalization.CompareActivities(result[i], result[j]) < 0
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of archived activities for account.
func (s *ActivityStore) Count(_ context.Context, account string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[account]), nil
}
