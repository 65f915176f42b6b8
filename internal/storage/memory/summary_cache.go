package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/storage"
)

// SummaryCache is an in-memory implementation of storage.SummaryCache.
type SummaryCache struct {
	mu   sync.Mutex
	data map[string]cachedSummary
	now  func() time.Time
}

type cachedSummary struct {
	summary   domain.MetricsSummary
	expiresAt time.Time // zero means no expiry
}

// NewSummaryCache creates a new in-memory summary cache.
func NewSummaryCache() *SummaryCache {
	return &SummaryCache{
		data: make(map[string]cachedSummary),
		now:  time.Now,
	}
}

// Compile-time interface check.
var _ storage.SummaryCache = (*SummaryCache)(nil)

// Get retrieves a copy of a cached summary. Expired entries are dropped.
func (c *SummaryCache) Get(_ context.Context, key string) (*domain.MetricsSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.data, key)
		return nil, storage.ErrNotFound
	}
	s := entry.summary
	return &s, nil
}

// Set stores a copy of summary.
func (c *SummaryCache) Set(_ context.Context, key string, summary *domain.MetricsSummary, ttl time.Duration) error {
	if key == "" || summary == nil {
		return storage.ErrInvalidInput
	}

	entry := cachedSummary{summary: *summary}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = entry
	return nil
}

// DeleteAccount drops every cached summary of account.
func (c *SummaryCache) DeleteAccount(_ context.Context, account string) error {
	prefix := storage.SummaryPrefix(account)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}
