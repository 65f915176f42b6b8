package aggregator

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/ingestion"
)

// session is the AccountSnapshot aggregate root: everything belonging to one
// viewpoint account between two resets. Nothing is shared between sessions.
type session struct {
	id      uint64
	account string
	ctx     context.Context
	cancel  context.CancelFunc
	cursors []ingestion.Cursor

	// Guarded by Aggregator.mu. feed is replaced, never mutated.
	version uint64
	feed    []*domain.NormalizedActivity
	stats   *domain.TraderStats

	cacheMu      sync.Mutex
	cacheVersion uint64
	summaries    map[domain.Window]*domain.MetricsSummary
	series       map[domain.SeriesKind][]domain.DailySeriesPoint
}

func newSession(parent context.Context, id uint64, account string, cursors []ingestion.Cursor) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		id:        id,
		account:   account,
		ctx:       ctx,
		cancel:    cancel,
		cursors:   cursors,
		feed:      []*domain.NormalizedActivity{},
		summaries: make(map[domain.Window]*domain.MetricsSummary),
		series:    make(map[domain.SeriesKind][]domain.DailySeriesPoint),
	}
}

func (s *session) statuses() []domain.CursorState {
	out := make([]domain.CursorState, len(s.cursors))
	for i, c := range s.cursors {
		out[i] = c.State()
	}
	return out
}

func (s *session) exhausted() bool {
	for _, c := range s.cursors {
		if !c.State().Exhausted {
			return false
		}
	}
	return true
}

// cachedSummary returns the summary computed for version, if any.
func (s *session) cachedSummary(version uint64, w domain.Window) (*domain.MetricsSummary, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheVersion != version {
		return nil, false
	}
	sum, ok := s.summaries[w]
	return sum, ok
}

func (s *session) storeSummary(version uint64, w domain.Window, sum *domain.MetricsSummary) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if !s.resetCacheLocked(version) {
		return
	}
	s.summaries[w] = sum
}

func (s *session) cachedSeries(version uint64, kind domain.SeriesKind) ([]domain.DailySeriesPoint, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheVersion != version {
		return nil, false
	}
	points, ok := s.series[kind]
	return points, ok
}

func (s *session) storeSeries(version uint64, kind domain.SeriesKind, points []domain.DailySeriesPoint) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if !s.resetCacheLocked(version) {
		return
	}
	s.series[kind] = points
}

// resetCacheLocked moves the cache to version, dropping older entries.
// It returns false for a version older than the cached one.
func (s *session) resetCacheLocked(version uint64) bool {
	if version < s.cacheVersion {
		return false
	}
	if version > s.cacheVersion {
		s.cacheVersion = version
		s.summaries = make(map[domain.Window]*domain.MetricsSummary)
		s.series = make(map[domain.SeriesKind][]domain.DailySeriesPoint)
	}
	return true
}

// Snapshot is a read-only view of the current account session.
// Feed must not be modified.
type Snapshot struct {
	Account  string
	Session  uint64
	Version  uint64
	Feed     []*domain.NormalizedActivity
	Stats    *domain.TraderStats
	Statuses []domain.CursorState
}

// Fingerprint identifies the snapshot content independent of the process:
// the feed ids with the source and direction of each record, and the
// trader-stats fetch time. Used as a cache key suffix.
func (s *Snapshot) Fingerprint() string {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(s.Feed)))
	h.Write(buf[:])
	for _, a := range s.Feed {
		h.Write([]byte(a.ID))
		h.Write([]byte{0})
		h.Write([]byte(a.Source))
		h.Write([]byte{0})
		h.Write([]byte(a.Direction))
		h.Write([]byte{0})
	}
	if s.Stats != nil {
		binary.BigEndian.PutUint64(buf[:], uint64(s.Stats.FetchedAt.UnixNano()))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
