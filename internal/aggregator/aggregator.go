// Package aggregator merges the paginated activity sources of one account into
// a single newest-first feed and serves metrics and daily series over it.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/ingestion"
	"xrpl-activity-lab/internal/metrics"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/storage"
	"xrpl-activity-lab/internal/timeseries"
	"xrpl-activity-lab/internal/tokenhistory"
)

// ErrNoStatsSource is returned by RefreshPerformance without a stats fetcher.
var ErrNoStatsSource = errors.New("trader-stats source not configured")

// Options configures an Aggregator.
type Options struct {
	Sources    ingestion.Sources
	Normalizer *normalization.Normalizer // default normalization.New(Options{})

	// Optional persistence.
	Activities storage.ActivityStore
	Series     storage.DailySeriesStore

	Logger *log.Logger      // default log.Default()
	Now    func() time.Time // default time.Now
}

// MergeResult is the outcome of one MergeNextPage call.
type MergeResult struct {
	SessionID uint64
	Feed      []*domain.NormalizedActivity
	Added     int
	Replaced  int // records superseded by a preferred source
	Statuses  []domain.CursorState
	Exhausted bool // every source is exhausted
}

// Changed reports whether the merge altered the feed.
func (r *MergeResult) Changed() bool {
	return r != nil && (r.Added > 0 || r.Replaced > 0)
}

// Aggregator owns the AccountSnapshot of one viewpoint account at a time.
//
// MergeNextPage and RefreshPerformance are serialised; Reset and all readers
// may run concurrently with them.
type Aggregator struct {
	sources    ingestion.Sources
	normalizer *normalization.Normalizer
	activities storage.ActivityStore
	series     storage.DailySeriesStore
	logger     *log.Logger
	now        func() time.Time

	mergeMu sync.Mutex

	mu      sync.RWMutex
	nextID  uint64
	current *session
}

// New creates an Aggregator viewing account.
func New(account string, opts Options) *Aggregator {
	a := &Aggregator{
		sources:    opts.Sources,
		normalizer: opts.Normalizer,
		activities: opts.Activities,
		series:     opts.Series,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if a.normalizer == nil {
		a.normalizer = normalization.New(normalization.Options{})
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.Reset(account)
	return a
}

// Reset discards the current snapshot and starts a new session for account.
// Fetches still running for the old session are cancelled and their results
// are never merged.
func (a *Aggregator) Reset(account string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		a.current.cancel()
	}
	a.nextID++
	a.current = newSession(context.Background(), a.nextID, account, a.sources.NewCursors(account))
	return a.nextID
}

// Close cancels the current session.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current.cancel()
}

// Account returns the current viewpoint account.
func (a *Aggregator) Account() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.account
}

func (a *Aggregator) session() *session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// sessionContext returns a context cancelled when either ctx or the
// session ends.
func sessionContext(ctx context.Context, sess *session) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sess.ctx, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}

type fetched struct {
	source  domain.SourceID
	records []ingestion.RawRecord
	err     error
}

// MergeNextPage fetches the next page of every non-exhausted source
// concurrently and merges the results into the feed. A failing source is
// reported through Statuses and does not fail the call. Returns
// domain.ErrStaleSession when the account was reset during the fetch.
//
// When ctx ends mid-fetch the pages that did arrive are still merged, the
// interrupted sources keep their position, and both the result and the
// context error are returned.
func (a *Aggregator) MergeNextPage(ctx context.Context) (*MergeResult, error) {
	a.mergeMu.Lock()
	defer a.mergeMu.Unlock()

	sess := a.session()
	fetchCtx, cancel := sessionContext(ctx, sess)
	defer cancel()

	results := a.fetchAll(fetchCtx, sess.cursors)

	// Normalization happens before the lock; the records belong to this
	// fetch only.
	var incoming []*domain.NormalizedActivity
	for _, r := range results {
		if r.err != nil {
			a.logger.Printf("warn: %s fetch for %s failed: %v", r.source, sess.account, r.err)
			continue
		}
		for _, rec := range r.records {
			act, err := a.normalize(rec, sess.account)
			if err != nil {
				observability.RecordMalformed(rec.Source.String())
				a.logger.Printf("warn: skipping %s record for %s: %v", rec.Source, sess.account, err)
				continue
			}
			observability.RecordNormalized(rec.Source.String())
			incoming = append(incoming, act)
		}
	}

	start := time.Now()
	a.mu.Lock()
	if a.current != sess {
		a.mu.Unlock()
		observability.RecordStaleDiscard()
		a.logger.Printf("discarding %d records of stale session %d (%s)", len(incoming), sess.id, sess.account)
		return nil, domain.ErrStaleSession
	}
	added, replaced := mergeInto(sess, incoming)
	feed := sess.feed
	a.mu.Unlock()

	observability.RecordMerge(len(added), time.Since(start).Seconds(), a.now().Unix())
	// The merge is published; archiving must not depend on the caller staying.
	a.archive(context.WithoutCancel(ctx), sess.account, added, replaced)

	res := &MergeResult{
		SessionID: sess.id,
		Feed:      feed,
		Added:     len(added),
		Replaced:  len(replaced),
		Statuses:  sess.statuses(),
		Exhausted: sess.exhausted(),
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("merge next page: %w", err)
	}
	return res, nil
}

// fetchAll runs one FetchNext per non-exhausted cursor and waits for all.
func (a *Aggregator) fetchAll(ctx context.Context, cursors []ingestion.Cursor) []fetched {
	results := make([]fetched, len(cursors))
	var wg sync.WaitGroup
	for i, c := range cursors {
		results[i].source = c.Source()
		if c.State().Exhausted {
			continue
		}
		wg.Add(1)
		go func(i int, c ingestion.Cursor) {
			defer wg.Done()
			start := time.Now()
			page, err := c.FetchNext(ctx)
			n := 0
			if page != nil {
				n = len(page.Records)
				results[i].records = page.Records
			}
			results[i].err = err
			observability.RecordFetch(c.Source().String(), time.Since(start).Seconds(), n, err)
		}(i, c)
	}
	wg.Wait()
	return results
}

func (a *Aggregator) normalize(rec ingestion.RawRecord, account string) (*domain.NormalizedActivity, error) {
	switch {
	case rec.Source == domain.SourceLedger && rec.Ledger != nil:
		return a.normalizer.NormalizeLedger(rec.Ledger, account)
	case rec.Source == domain.SourceTokenHistory && rec.Token != nil:
		return a.normalizer.NormalizeTokenTrade(rec.Token, account)
	case rec.Source == domain.SourceNFTTrades && rec.NFT != nil:
		return a.normalizer.NormalizeNFTTrade(rec.NFT, account)
	}
	return nil, fmt.Errorf("%w: empty %s record", domain.ErrMalformedRecord, rec.Source)
}

// mergeInto publishes a new feed containing incoming. Duplicate ids keep the
// record of the preferred source. It returns the records new to the feed and
// the records that replaced one merged on an earlier page.
// Caller holds Aggregator.mu.
func mergeInto(sess *session, incoming []*domain.NormalizedActivity) (added, replaced []*domain.NormalizedActivity) {
	if len(incoming) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.NormalizedActivity, len(sess.feed)+len(incoming))
	for _, act := range sess.feed {
		byID[act.ID] = act
	}

	fresh := make(map[string]bool)
	for _, act := range incoming {
		prev, ok := byID[act.ID]
		if !ok {
			byID[act.ID] = act
			fresh[act.ID] = true
			continue
		}
		if act.Source.Priority() < prev.Source.Priority() {
			byID[act.ID] = act
		}
	}

	// Walk incoming again so both lists follow arrival order and hold the
	// winning record only once.
	seen := make(map[string]bool)
	for _, act := range incoming {
		if seen[act.ID] || byID[act.ID] != act {
			continue
		}
		seen[act.ID] = true
		if fresh[act.ID] {
			added = append(added, act)
		} else {
			replaced = append(replaced, act)
		}
	}
	if len(added) == 0 && len(replaced) == 0 {
		return nil, nil
	}

	feed := make([]*domain.NormalizedActivity, 0, len(byID))
	for _, act := range byID {
		feed = append(feed, act)
	}
	normalization.SortFeed(feed)

	sess.feed = feed
	sess.version++
	return added, replaced
}

func (a *Aggregator) archive(ctx context.Context, account string, added, replaced []*domain.NormalizedActivity) {
	if a.activities == nil {
		return
	}
	if len(added) > 0 {
		if _, err := a.activities.InsertBulk(ctx, account, added); err != nil {
			a.logger.Printf("warn: archive %d activities for %s: %v", len(added), account, err)
		}
	}
	if len(replaced) > 0 {
		if err := a.activities.Upsert(ctx, account, replaced); err != nil {
			a.logger.Printf("warn: archive %d replaced activities for %s: %v", len(replaced), account, err)
		}
	}
}

// RefreshPerformance fetches the trader-stats view and replaces the
// performance records of the snapshot wholesale. The charted series are
// persisted when a DailySeriesStore is configured.
func (a *Aggregator) RefreshPerformance(ctx context.Context) (err error) {
	defer func() { observability.RecordPerformanceRefresh(err) }()

	if a.sources.Stats == nil {
		return ErrNoStatsSource
	}

	a.mergeMu.Lock()
	defer a.mergeMu.Unlock()

	sess := a.session()
	fetchCtx, cancel := sessionContext(ctx, sess)
	defer cancel()

	page, err := a.sources.Stats.StatsAll(fetchCtx, sess.account)
	if err != nil {
		if sess.ctx.Err() != nil {
			return domain.ErrStaleSession
		}
		return &domain.SourceError{Source: domain.SourceTokenHistory, Err: err}
	}
	stats := tokenhistory.ToTraderStats(sess.account, page, a.normalizer.Codec(), a.now())

	a.mu.Lock()
	if a.current != sess {
		a.mu.Unlock()
		observability.RecordStaleDiscard()
		return domain.ErrStaleSession
	}
	sess.stats = stats
	sess.version++
	a.mu.Unlock()

	a.persistSeries(ctx, sess.account, stats)
	return nil
}

func (a *Aggregator) persistSeries(ctx context.Context, account string, stats *domain.TraderStats) {
	if a.series == nil {
		return
	}
	for _, kind := range domain.SeriesKinds {
		points, err := timeseries.Build(stats.History, kind)
		if err != nil {
			observability.RecordSeriesError(string(kind))
			a.logger.Printf("warn: %s series for %s: %v", kind, account, err)
			continue
		}
		if err := a.series.Replace(ctx, account, kind, points); err != nil {
			a.logger.Printf("warn: store %s series for %s: %v", kind, account, err)
		}
	}
}

// Snapshot returns a read-only view of the current session.
func (a *Aggregator) Snapshot() *Snapshot {
	_, snap := a.view()
	return snap
}

func (a *Aggregator) view() (*session, *Snapshot) {
	a.mu.RLock()
	sess := a.current
	snap := &Snapshot{
		Account: sess.account,
		Session: sess.id,
		Version: sess.version,
		Feed:    sess.feed,
		Stats:   sess.stats,
	}
	a.mu.RUnlock()
	snap.Statuses = sess.statuses()
	return sess, snap
}

// Feed returns the merged feed. The slice must not be modified.
func (a *Aggregator) Feed() []*domain.NormalizedActivity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current.feed
}

// Filtered applies f to the merged feed.
func (a *Aggregator) Filtered(f Filter) []*domain.NormalizedActivity {
	return f.Apply(a.Feed())
}

// Statuses returns the per-source cursor states in source priority order.
func (a *Aggregator) Statuses() []domain.CursorState {
	return a.session().statuses()
}

// Summary returns the metrics of window over the current snapshot. The
// result is cached until the next merge or refresh.
func (a *Aggregator) Summary(window domain.Window) (*domain.MetricsSummary, error) {
	sess, snap := a.view()
	if sum, ok := sess.cachedSummary(snap.Version, window); ok {
		observability.RecordCacheLookup("summary", true)
		return sum, nil
	}
	observability.RecordCacheLookup("summary", false)

	sum, err := metrics.Summarize(snap.Feed, snap.Stats, window, a.now())
	if err != nil {
		return nil, err
	}
	sum.Account = snap.Account
	sess.storeSummary(snap.Version, window, sum)
	return sum, nil
}

// Series returns the gap-filled daily series of kind. An ordering failure
// affects only the requested series.
func (a *Aggregator) Series(kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	if !kind.IsValid() {
		return nil, timeseries.ErrInvalidKind
	}

	sess, snap := a.view()
	if points, ok := sess.cachedSeries(snap.Version, kind); ok {
		observability.RecordCacheLookup("series", true)
		return points, nil
	}
	observability.RecordCacheLookup("series", false)

	var history []domain.DailyRecord
	if snap.Stats != nil {
		history = snap.Stats.History
	}
	points, err := timeseries.Build(history, kind)
	if err != nil {
		observability.RecordSeriesError(string(kind))
		return nil, fmt.Errorf("%s series: %w", kind, err)
	}
	sess.storeSeries(snap.Version, kind, points)
	return points, nil
}
