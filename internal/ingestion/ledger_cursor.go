package ingestion

import (
	"context"
	"encoding/json"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/xrpl"
)

// DefaultLedgerPageSize is the account_tx limit used when none is given.
const DefaultLedgerPageSize = 50

// LedgerCursor pages account_tx with an opaque marker passed back verbatim.
// hasMore is true while the server returns a non-null marker.
type LedgerCursor struct {
	client  LedgerFetcher
	account string
	limit   int
	marker  json.RawMessage
	tracker tracker
}

// NewLedgerCursor creates a cursor over account's full validated history.
func NewLedgerCursor(client LedgerFetcher, account string, limit int) *LedgerCursor {
	if limit <= 0 {
		limit = DefaultLedgerPageSize
	}
	return &LedgerCursor{
		client:  client,
		account: account,
		limit:   limit,
		tracker: newTracker(domain.SourceLedger),
	}
}

// Source implements Cursor.
func (c *LedgerCursor) Source() domain.SourceID {
	return domain.SourceLedger
}

// State implements Cursor.
func (c *LedgerCursor) State() domain.CursorState {
	return c.tracker.snapshot()
}

// FetchNext implements Cursor.
func (c *LedgerCursor) FetchNext(ctx context.Context) (*Page, error) {
	if !c.tracker.begin() {
		return &Page{}, nil
	}

	res, err := c.client.AccountTx(ctx, xrpl.NewAccountTxRequest(c.account, c.limit, c.marker))
	if err != nil {
		return nil, c.tracker.settle(ctx, err)
	}

	page := &Page{
		Records: make([]RawRecord, len(res.Transactions)),
		HasMore: res.HasMore(),
	}
	for i := range res.Transactions {
		page.Records[i] = RawRecord{Source: domain.SourceLedger, Ledger: &res.Transactions[i]}
	}

	next := ""
	if page.HasMore {
		c.marker = append(json.RawMessage(nil), res.Marker...)
		next = string(c.marker)
	}
	c.tracker.succeed(next, page.HasMore, len(page.Records))
	return page, nil
}
