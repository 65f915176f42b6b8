// Package service keeps one aggregator session per viewed account and fronts
// summary reads with the shared summary cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"xrpl-activity-lab/internal/aggregator"
	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/ingestion"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/storage"
	"xrpl-activity-lab/internal/xrpl"
)

// Default configuration values.
const (
	DefaultMaxSessions = 256
	DefaultCacheTTL    = 5 * time.Minute
)

// ErrInvalidAccount is returned for a malformed classic address.
var ErrInvalidAccount = errors.New("invalid account address")

// Options configures a Registry.
type Options struct {
	Sources    ingestion.Sources
	Normalizer *normalization.Normalizer
	Activities storage.ActivityStore
	Series     storage.DailySeriesStore
	Cache      storage.SummaryCache // optional

	CacheTTL    time.Duration
	MaxSessions int // least recently used sessions are closed beyond this

	// SkipAddressCheck accepts any non-empty account id. Used by tests
	// with readable fake accounts.
	SkipAddressCheck bool

	Logger *log.Logger
	Now    func() time.Time
}

// Registry owns the per-account sessions.
type Registry struct {
	opts     Options
	logger   *log.Logger
	mu       sync.Mutex
	sessions *lru.Cache[string, *aggregator.Aggregator]
}

// NewRegistry creates a Registry.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalization.New(normalization.Options{})
	}

	r := &Registry{opts: opts, logger: opts.Logger}
	sessions, err := lru.NewWithEvict(opts.MaxSessions, func(account string, agg *aggregator.Aggregator) {
		agg.Close()
		r.logger.Printf("evicted session for %s", account)
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	r.sessions = sessions
	return r, nil
}

// Session returns the aggregator of account, creating it on first use.
func (r *Registry) Session(account string) (*aggregator.Aggregator, error) {
	if account == "" || (!r.opts.SkipAddressCheck && !xrpl.ValidAddress(account)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if agg, ok := r.sessions.Get(account); ok {
		return agg, nil
	}
	agg := aggregator.New(account, aggregator.Options{
		Sources:    r.opts.Sources,
		Normalizer: r.opts.Normalizer,
		Activities: r.opts.Activities,
		Series:     r.opts.Series,
		Logger:     r.opts.Logger,
		Now:        r.opts.Now,
	})
	r.sessions.Add(account, agg)
	observability.SetActiveSessions(r.sessions.Len())
	return agg, nil
}

// Accounts returns the accounts with an open session, sorted.
func (r *Registry) Accounts() []string {
	keys := r.sessions.Keys()
	sort.Strings(keys)
	return keys
}

// Reset starts a fresh session for account, discarding loaded pages.
func (r *Registry) Reset(ctx context.Context, account string) error {
	agg, err := r.Session(account)
	if err != nil {
		return err
	}
	agg.Reset(account)
	r.invalidate(ctx, account)
	return nil
}

// Remove closes and forgets the session of account.
func (r *Registry) Remove(account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Remove(account)
	observability.SetActiveSessions(r.sessions.Len())
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Purge()
	observability.SetActiveSessions(0)
}

// MergeNextPage loads the next page of every source for account. Cached
// summaries are dropped whenever the feed changed, including a merge that
// completed after ctx ended.
func (r *Registry) MergeNextPage(ctx context.Context, account string) (*aggregator.MergeResult, error) {
	agg, err := r.Session(account)
	if err != nil {
		return nil, err
	}
	res, err := agg.MergeNextPage(ctx)
	if res.Changed() {
		r.invalidate(context.WithoutCancel(ctx), account)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RefreshPerformance reloads the trader-stats view of account.
func (r *Registry) RefreshPerformance(ctx context.Context, account string) error {
	agg, err := r.Session(account)
	if err != nil {
		return err
	}
	if err := agg.RefreshPerformance(ctx); err != nil {
		return err
	}
	r.invalidate(ctx, account)
	return nil
}

// Summary returns the metrics summary of account for window. Summaries are
// read through the shared cache under a key naming the snapshot content.
func (r *Registry) Summary(ctx context.Context, account string, window domain.Window) (*domain.MetricsSummary, error) {
	agg, err := r.Session(account)
	if err != nil {
		return nil, err
	}
	if r.opts.Cache == nil {
		return agg.Summary(window)
	}

	key := storage.SummaryKey(account, window, agg.Snapshot().Fingerprint())
	cached, err := r.opts.Cache.Get(ctx, key)
	switch {
	case err == nil:
		observability.RecordCacheLookup("summary_shared", true)
		return cached, nil
	case !errors.Is(err, storage.ErrNotFound):
		r.logger.Printf("warn: summary cache get %s: %v", key, err)
	}
	observability.RecordCacheLookup("summary_shared", false)

	sum, err := agg.Summary(window)
	if err != nil {
		return nil, err
	}
	if err := r.opts.Cache.Set(ctx, key, sum, r.opts.CacheTTL); err != nil {
		r.logger.Printf("warn: summary cache set %s: %v", key, err)
	}
	return sum, nil
}

// Series returns the gap-filled daily series of account.
func (r *Registry) Series(account string, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	agg, err := r.Session(account)
	if err != nil {
		return nil, err
	}
	return agg.Series(kind)
}

// Activity returns the filtered feed and source statuses of account.
func (r *Registry) Activity(account string, f aggregator.Filter) ([]*domain.NormalizedActivity, []domain.CursorState, error) {
	agg, err := r.Session(account)
	if err != nil {
		return nil, nil, err
	}
	return agg.Filtered(f), agg.Statuses(), nil
}

func (r *Registry) invalidate(ctx context.Context, account string) {
	if r.opts.Cache == nil {
		return
	}
	if err := r.opts.Cache.DeleteAccount(ctx, account); err != nil {
		r.logger.Printf("warn: summary cache invalidate %s: %v", account, err)
	}
}
