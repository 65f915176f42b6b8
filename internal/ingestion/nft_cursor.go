package ingestion

import (
	"context"
	"strconv"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/nfttrades"
)

// NFTTradeCursor pages the NFT trade API by offset. A short page ends the
// source; the offset advances by the number of trades returned.
type NFTTradeCursor struct {
	client  NFTTradeFetcher
	account string
	limit   int
	offset  int
	tracker tracker
}

// NewNFTTradeCursor creates an NFT trade cursor.
func NewNFTTradeCursor(client NFTTradeFetcher, account string, limit int) *NFTTradeCursor {
	if limit <= 0 {
		limit = nfttrades.DefaultLimit
	}
	return &NFTTradeCursor{
		client:  client,
		account: account,
		limit:   limit,
		tracker: newTracker(domain.SourceNFTTrades),
	}
}

// Source implements Cursor.
func (c *NFTTradeCursor) Source() domain.SourceID {
	return domain.SourceNFTTrades
}

// State implements Cursor.
func (c *NFTTradeCursor) State() domain.CursorState {
	return c.tracker.snapshot()
}

// FetchNext implements Cursor.
func (c *NFTTradeCursor) FetchNext(ctx context.Context) (*Page, error) {
	if !c.tracker.begin() {
		return &Page{}, nil
	}

	res, err := c.client.Trades(ctx, c.account, c.offset, c.limit)
	if err != nil {
		return nil, c.tracker.settle(ctx, err)
	}

	page := &Page{
		Records: make([]RawRecord, len(res.Trades)),
		HasMore: len(res.Trades) == c.limit,
	}
	for i := range res.Trades {
		page.Records[i] = RawRecord{Source: domain.SourceNFTTrades, NFT: &res.Trades[i]}
	}

	c.offset += len(res.Trades)
	c.tracker.succeed(strconv.Itoa(c.offset), page.HasMore, len(page.Records))
	return page, nil
}
