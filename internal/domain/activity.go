package domain

import (
	"strconv"
	"time"
)

// Direction is the value flow of an activity relative to the viewpoint account.
type Direction string

const (
	DirectionIn     Direction = "in"
	DirectionOut    Direction = "out"
	DirectionFailed Direction = "failed"
)

// Side is the dominant asset flow of an offer or swap.
type Side string

const (
	SideNone  Side = ""
	SideBuy   Side = "buy"
	SideSell  Side = "sell"
	SideTrade Side = "trade"
)

// NormalizedActivity is a source-agnostic record of one ledger event as seen
// from one account. Built once by the normalizer and never mutated afterwards.
type NormalizedActivity struct {
	ID           string          // transaction hash (upper-case hex)
	Timestamp    time.Time       // UTC close time
	Direction    Direction       // in | out | failed
	Kind         TransactionKind // ledger transaction type
	Sender       string          // submitting account; empty when the source omits it
	Side         Side            // buy | sell | trade for offers and swaps
	Counterparty *string         // other side of the value transfer
	Primary      *Amount         // main amount moved
	Secondary    *Amount         // second leg for swaps and AMM operations
	SourceTag    *SourceTag      // integrator tag
	IsDust       bool            // primary value below dust threshold
	NFTokenID    *string         // NFT involved, if any
	Source       SourceID        // upstream that produced the record
	Result       string          // ledger result code, e.g. tesSUCCESS
	LedgerIndex  int64           // 0 when unknown
	Fee          *Amount         // fee paid, XRP
}

// HasCurrency reports whether either leg of the activity uses the given currency code.
func (a *NormalizedActivity) HasCurrency(code string) bool {
	for _, amt := range []*Amount{a.Primary, a.Secondary} {
		if amt == nil {
			continue
		}
		if amt.Currency == code || amt.RawCurrency == code {
			return true
		}
	}
	return false
}

// XRPLeg returns the XRP-denominated leg of the activity, or nil.
func (a *NormalizedActivity) XRPLeg() *Amount {
	if a.Primary != nil && a.Primary.IsXRP() {
		return a.Primary
	}
	if a.Secondary != nil && a.Secondary.IsXRP() {
		return a.Secondary
	}
	return nil
}

// SourceTag is a transaction SourceTag with its known integrator label.
type SourceTag struct {
	Value uint32
	Label string // empty for unknown tags
}

// String returns the label for known tags and the raw integer otherwise.
func (t SourceTag) String() string {
	if t.Label != "" {
		return t.Label
	}
	return strconv.FormatUint(uint64(t.Value), 10)
}
