package domain

import "time"

// SourceID identifies one upstream activity source.
type SourceID string

const (
	SourceLedger       SourceID = "ledger"
	SourceTokenHistory SourceID = "token_history"
	SourceNFTTrades    SourceID = "nft_trades"
)

// AllSources lists the sources in merge-preference order: on duplicate ids the
// earlier source wins.
var AllSources = []SourceID{SourceLedger, SourceTokenHistory, SourceNFTTrades}

// String returns the string representation of SourceID.
func (s SourceID) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s SourceID) IsValid() bool {
	return s == SourceLedger || s == SourceTokenHistory || s == SourceNFTTrades
}

// Priority returns the dedup preference of a source, lower wins.
func (s SourceID) Priority() int {
	for i, id := range AllSources {
		if id == s {
			return i
		}
	}
	return len(AllSources)
}

// CursorStatus is the per-source state of a pagination cursor.
// Transitions: idle -> loading -> ready | partial-error.
type CursorStatus string

const (
	CursorIdle         CursorStatus = "idle"
	CursorLoading      CursorStatus = "loading"
	CursorReady        CursorStatus = "ready"
	CursorPartialError CursorStatus = "partial-error"
)

// CursorState is a point-in-time view of one source cursor.
type CursorState struct {
	Source        SourceID
	NextToken     string // marker JSON, cursor string or decimal offset
	Exhausted     bool   // terminal
	LastFetchedAt time.Time
	Status        CursorStatus
	LastError     string
	Fetched       int // records returned so far
}
