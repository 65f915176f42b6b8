package ingestion

import (
	"context"
	"sync"
	"time"

	"xrpl-activity-lab/internal/domain"
)

// Cursor pages through one upstream source. FetchNext is called by one
// goroutine at a time; State may be called concurrently.
//
// An exhausted cursor returns an empty page without touching the network.
// A failed fetch marks the cursor partial-error and exhausted and returns a
// *domain.SourceError. A fetch interrupted by ctx is not a failure: the cursor
// keeps its position and status and the context error is returned.
type Cursor interface {
	Source() domain.SourceID
	FetchNext(ctx context.Context) (*Page, error)
	State() domain.CursorState
}

// tracker owns the idle -> loading -> ready | partial-error transitions.
type tracker struct {
	mu    sync.Mutex
	state domain.CursorState
	prev  domain.CursorStatus
	now   func() time.Time
}

func newTracker(source domain.SourceID) tracker {
	return tracker{
		state: domain.CursorState{Source: source, Status: domain.CursorIdle},
		now:   time.Now,
	}
}

// begin moves to loading. It returns false for an exhausted cursor.
func (t *tracker) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Exhausted {
		return false
	}
	t.prev = t.state.Status
	t.state.Status = domain.CursorLoading
	return true
}

func (t *tracker) succeed(next string, hasMore bool, fetched int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = domain.CursorReady
	t.state.NextToken = next
	t.state.Exhausted = !hasMore
	t.state.LastFetchedAt = t.now().UTC()
	t.state.Fetched += fetched
}

func (t *tracker) fail(err error) *domain.SourceError {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = domain.CursorPartialError
	t.state.Exhausted = true
	t.state.LastError = err.Error()
	t.state.LastFetchedAt = t.now().UTC()
	return &domain.SourceError{Source: t.state.Source, Err: err}
}

// settle records a failed fetch. When ctx has ended the source is not at
// fault: the cursor returns to its previous status and the error is passed
// through unchanged.
func (t *tracker) settle(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return t.fail(err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = t.prev
	return err
}

func (t *tracker) snapshot() domain.CursorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
