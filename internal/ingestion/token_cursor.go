package ingestion

import (
	"context"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/tokenhistory"
)

// TokenHistoryParams are the fixed query parameters of a token-history cursor.
type TokenHistoryParams struct {
	Account  string
	Limit    int
	Type     string
	PairType string
}

// TokenHistoryCursor pages the token-history API by nextCursor.
type TokenHistoryCursor struct {
	client  TokenHistoryFetcher
	params  TokenHistoryParams
	cursor  string
	tracker tracker
}

// NewTokenHistoryCursor creates a token-history cursor.
func NewTokenHistoryCursor(client TokenHistoryFetcher, params TokenHistoryParams) *TokenHistoryCursor {
	if params.Limit <= 0 {
		params.Limit = tokenhistory.DefaultLimit
	}
	return &TokenHistoryCursor{
		client:  client,
		params:  params,
		tracker: newTracker(domain.SourceTokenHistory),
	}
}

// Source implements Cursor.
func (c *TokenHistoryCursor) Source() domain.SourceID {
	return domain.SourceTokenHistory
}

// State implements Cursor.
func (c *TokenHistoryCursor) State() domain.CursorState {
	return c.tracker.snapshot()
}

// FetchNext implements Cursor.
func (c *TokenHistoryCursor) FetchNext(ctx context.Context) (*Page, error) {
	if !c.tracker.begin() {
		return &Page{}, nil
	}

	res, err := c.client.List(ctx, tokenhistory.ListParams{
		Account:  c.params.Account,
		Limit:    c.params.Limit,
		Type:     c.params.Type,
		PairType: c.params.PairType,
		Cursor:   c.cursor,
	})
	if err != nil {
		return nil, c.tracker.settle(ctx, err)
	}

	page := &Page{
		Records: make([]RawRecord, len(res.Data)),
		HasMore: res.HasMore(),
	}
	for i := range res.Data {
		page.Records[i] = RawRecord{Source: domain.SourceTokenHistory, Token: &res.Data[i]}
	}

	if page.HasMore {
		c.cursor = *res.Meta.NextCursor
	}
	c.tracker.succeed(c.cursor, page.HasMore, len(page.Records))
	return page, nil
}
