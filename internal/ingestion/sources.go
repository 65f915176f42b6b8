// Package ingestion pages through the three upstream activity sources.
package ingestion

import (
	"context"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/tokenhistory"
	"xrpl-activity-lab/internal/xrpl"
)

// LedgerFetcher provides account_tx pages. Implemented by xrpl.HTTPClient
// and xrpl.WSClient.
type LedgerFetcher interface {
	AccountTx(ctx context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxResult, error)
}

// TokenHistoryFetcher provides cursor-paginated token trades.
type TokenHistoryFetcher interface {
	List(ctx context.Context, p tokenhistory.ListParams) (*tokenhistory.Page, error)
}

// NFTTradeFetcher provides offset-paginated NFT trades.
type NFTTradeFetcher interface {
	Trades(ctx context.Context, account string, offset, limit int) (*nfttrades.Page, error)
}

// StatsFetcher provides the trader-stats view of an account.
type StatsFetcher interface {
	StatsAll(ctx context.Context, account string) (*tokenhistory.StatsPage, error)
}

// Compile-time interface checks.
var (
	_ LedgerFetcher       = (*xrpl.HTTPClient)(nil)
	_ LedgerFetcher       = (*xrpl.WSClient)(nil)
	_ TokenHistoryFetcher = (*tokenhistory.Client)(nil)
	_ StatsFetcher        = (*tokenhistory.Client)(nil)
	_ NFTTradeFetcher     = (*nfttrades.Client)(nil)
)

// Sources bundles the upstream fetchers and page sizes for one deployment.
// A nil fetcher disables that source.
type Sources struct {
	Ledger LedgerFetcher
	Tokens TokenHistoryFetcher
	NFTs   NFTTradeFetcher
	Stats  StatsFetcher

	LedgerPageSize int
	TokenPageSize  int
	NFTPageSize    int

	// TokenType and TokenPairType filter the token-history query.
	TokenType     string
	TokenPairType string
}

// NewCursors builds fresh cursors for account in source priority order.
func (s Sources) NewCursors(account string) []Cursor {
	var cursors []Cursor
	if s.Ledger != nil {
		cursors = append(cursors, NewLedgerCursor(s.Ledger, account, s.LedgerPageSize))
	}
	if s.Tokens != nil {
		cursors = append(cursors, NewTokenHistoryCursor(s.Tokens, TokenHistoryParams{
			Account:  account,
			Limit:    s.TokenPageSize,
			Type:     s.TokenType,
			PairType: s.TokenPairType,
		}))
	}
	if s.NFTs != nil {
		cursors = append(cursors, NewNFTTradeCursor(s.NFTs, account, s.NFTPageSize))
	}
	return cursors
}

// RawRecord is one upstream record before normalization. Exactly one of
// Ledger, Token and NFT is set, matching Source.
type RawRecord struct {
	Source domain.SourceID
	Ledger *xrpl.AccountTransaction
	Token  *tokenhistory.Record
	NFT    *nfttrades.Trade
}

// Page is one fetched page of raw records.
type Page struct {
	Records []RawRecord
	HasMore bool
}
