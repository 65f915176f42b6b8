// Package stub provides in-memory token-history and NFT-trade fetchers for
// tests. The ledger fake lives in xrpl/stub.
package stub

import (
	"context"
	"strconv"
	"sync"

	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/tokenhistory"
)

// TokenHistory serves records per account with numeric string cursors.
// Implements ingestion.TokenHistoryFetcher and ingestion.StatsFetcher.
type TokenHistory struct {
	mu      sync.Mutex
	records map[string][]tokenhistory.Record
	stats   map[string]*tokenhistory.StatsPage

	// Err, when set, is returned by every call.
	Err error
	// Gate, when set, blocks each List call until it is closed or ctx ends.
	Gate  chan struct{}
	calls int
}

// NewTokenHistory creates an empty token-history fetcher.
func NewTokenHistory() *TokenHistory {
	return &TokenHistory{
		records: make(map[string][]tokenhistory.Record),
		stats:   make(map[string]*tokenhistory.StatsPage),
	}
}

// Add appends records to an account's history.
func (s *TokenHistory) Add(account string, recs ...tokenhistory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[account] = append(s.records[account], recs...)
}

// SetStats sets the trader-stats response for an account.
func (s *TokenHistory) SetStats(account string, page *tokenhistory.StatsPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[account] = page
}

// Calls returns the number of List and StatsAll calls.
func (s *TokenHistory) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// List implements ingestion.TokenHistoryFetcher.
func (s *TokenHistory) List(ctx context.Context, p tokenhistory.ListParams) (*tokenhistory.Page, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}

	offset := 0
	if p.Cursor != "" {
		n, err := strconv.Atoi(p.Cursor)
		if err != nil {
			return nil, err
		}
		offset = n
	}
	limit := p.Limit
	if limit <= 0 {
		limit = tokenhistory.DefaultLimit
	}

	all := s.records[p.Account]
	start, end := window(offset, limit, len(all))

	page := &tokenhistory.Page{Data: append([]tokenhistory.Record(nil), all[start:end]...)}
	if end < len(all) {
		next := strconv.Itoa(end)
		page.Meta.NextCursor = &next
	}
	return page, nil
}

// StatsAll implements ingestion.StatsFetcher.
func (s *TokenHistory) StatsAll(_ context.Context, account string) (*tokenhistory.StatsPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if page, ok := s.stats[account]; ok {
		return page, nil
	}
	return &tokenhistory.StatsPage{}, nil
}

// NFTTrades serves trades per account by offset.
// Implements ingestion.NFTTradeFetcher.
type NFTTrades struct {
	mu     sync.Mutex
	trades map[string][]nfttrades.Trade

	// Err, when set, is returned by every call.
	Err   error
	calls int
}

// NewNFTTrades creates an empty NFT trade fetcher.
func NewNFTTrades() *NFTTrades {
	return &NFTTrades{trades: make(map[string][]nfttrades.Trade)}
}

// Add appends trades to an account's history.
func (s *NFTTrades) Add(account string, trades ...nfttrades.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[account] = append(s.trades[account], trades...)
}

// Calls returns the number of Trades calls.
func (s *NFTTrades) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Trades implements ingestion.NFTTradeFetcher.
func (s *NFTTrades) Trades(_ context.Context, account string, offset, limit int) (*nfttrades.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	if limit <= 0 {
		limit = nfttrades.DefaultLimit
	}
	all := s.trades[account]
	start, end := window(offset, limit, len(all))
	return &nfttrades.Page{Trades: append([]nfttrades.Trade(nil), all[start:end]...)}, nil
}

func window(offset, limit, n int) (int, int) {
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
