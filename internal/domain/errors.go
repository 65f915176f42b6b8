package domain

import (
	"errors"
	"fmt"
)

// Activity pipeline errors.
var (
	// ErrSourceUnavailable is returned when an upstream source errors or times out.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedRecord is returned when a record cannot be placed in the feed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrOrdering is returned when daily series input is not strictly increasing.
	ErrOrdering = errors.New("series dates are not strictly increasing")

	// ErrPaginationExhausted marks a source with no more pages. Terminal, not a failure.
	ErrPaginationExhausted = errors.New("pagination exhausted")

	// ErrStaleSession is returned when a fetch finished after its session was replaced.
	ErrStaleSession = errors.New("stale session")
)

// SourceError wraps a failure of one upstream source.
type SourceError struct {
	Source SourceID
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, ErrSourceUnavailable, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is makes every SourceError match ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
