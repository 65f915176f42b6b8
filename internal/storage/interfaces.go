package storage

import (
	"context"
	"time"

	"xrpl-activity-lab/internal/domain"
)

// ActivityStore archives normalized activities per account.
type ActivityStore interface {
	// InsertBulk archives activities for account. Activities whose
	// (account, id) already exists are skipped. Returns the number inserted.
	InsertBulk(ctx context.Context, account string, activities []*domain.NormalizedActivity) (int, error)

	// Upsert archives activities for account, overwriting rows with the same
	// (account, id). Used when a preferred source replaces an archived record.
	Upsert(ctx context.Context, account string, activities []*domain.NormalizedActivity) error

	// GetByID retrieves one archived activity. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, account, id string) (*domain.NormalizedActivity, error)

	// GetByAccount retrieves archived activities ordered by timestamp DESC, id ASC.
	// limit <= 0 returns all.
	GetByAccount(ctx context.Context, account string, limit int) ([]*domain.NormalizedActivity, error)

	// Count returns the number of archived activities for account.
	Count(ctx context.Context, account string) (int, error)
}

// DailySeriesStore persists charted daily series.
type DailySeriesStore interface {
	// Replace stores the points of (account, kind), replacing any earlier series.
	Replace(ctx context.Context, account string, kind domain.SeriesKind, points []domain.DailySeriesPoint) error

	// Get retrieves the series of (account, kind), ordered by date ASC.
	// Returns an empty slice when nothing is stored.
	Get(ctx context.Context, account string, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error)
}

// SummaryCache caches computed metrics summaries.
type SummaryCache interface {
	// Get retrieves a cached summary. Returns ErrNotFound on a miss.
	Get(ctx context.Context, key string) (*domain.MetricsSummary, error)

	// Set stores a summary under key for ttl. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, summary *domain.MetricsSummary, ttl time.Duration) error

	// DeleteAccount drops every cached summary of account.
	DeleteAccount(ctx context.Context, account string) error
}

// SummaryKey builds the cache key of one summary. fingerprint identifies the
// data the summary was computed from.
func SummaryKey(account string, window domain.Window, fingerprint string) string {
	return SummaryPrefix(account) + string(window) + ":" + fingerprint
}

// SummaryPrefix returns the key prefix shared by all summaries of account.
func SummaryPrefix(account string) string {
	return "summary:" + account + ":"
}
