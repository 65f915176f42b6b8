package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/ingestion"
	ingeststub "xrpl-activity-lab/internal/ingestion/stub"
	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/normalization"
	"xrpl-activity-lab/internal/storage/memory"
	"xrpl-activity-lab/internal/tokenhistory"
	"xrpl-activity-lab/internal/xrpl"
	xrplstub "xrpl-activity-lab/internal/xrpl/stub"
)

const (
	alice = "rAlice"
	bob   = "rBob"
)

var quiet = log.New(io.Discard, "", 0)

func payment(t *testing.T, hash string, date int64, from, to string) xrpl.AccountTransaction {
	t.Helper()
	tx, err := json.Marshal(map[string]interface{}{
		"TransactionType": "Payment",
		"hash":            hash,
		"date":            date,
		"Account":         from,
		"Destination":     to,
		"Amount":          "5000000",
		"Fee":             "12",
	})
	require.NoError(t, err)
	meta := json.RawMessage(`{"TransactionResult":"tesSUCCESS","delivered_amount":"5000000"}`)
	return xrpl.AccountTransaction{Tx: tx, Meta: meta, Validated: true}
}

func swap(t *testing.T, hash string, ts time.Time, side string) tokenhistory.Record {
	t.Helper()
	raw := fmt.Sprintf(`{
		"hash": %q, "timestamp": %q, "type": "swap", "side": %q,
		"base": {"currency": "SOLO", "issuer": "rSolo", "value": "100"},
		"quote": {"currency": "XRP", "value": "12"}
	}`, hash, ts.Format(time.RFC3339), side)
	var rec tokenhistory.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

func nftSale(hash string, ts time.Time, buyer, seller string) nfttrades.Trade {
	return nfttrades.Trade{
		Hash:      hash,
		NFTokenID: "NFT-" + hash,
		Timestamp: json.RawMessage(fmt.Sprintf("%q", ts.Format(time.RFC3339))),
		Buyer:     buyer,
		Seller:    seller,
		Amount:    json.RawMessage(`"25"`),
	}
}

type fixture struct {
	ledger *xrplstub.Client
	tokens *ingeststub.TokenHistory
	nfts   *ingeststub.NFTTrades
}

func newFixture() *fixture {
	return &fixture{
		ledger: xrplstub.NewClient(),
		tokens: ingeststub.NewTokenHistory(),
		nfts:   ingeststub.NewNFTTrades(),
	}
}

func (f *fixture) sources(pageSize int) ingestion.Sources {
	return ingestion.Sources{
		Ledger:         f.ledger,
		Tokens:         f.tokens,
		NFTs:           f.nfts,
		Stats:          f.tokens,
		LedgerPageSize: pageSize,
		TokenPageSize:  pageSize,
		NFTPageSize:    pageSize,
	}
}

func (f *fixture) aggregator(account string, pageSize int) *Aggregator {
	return New(account, Options{Sources: f.sources(pageSize), Logger: quiet})
}

func ids(feed []*domain.NormalizedActivity) []string {
	out := make([]string, len(feed))
	for i, a := range feed {
		out[i] = a.ID
	}
	return out
}

func assertMonotonic(t *testing.T, feed []*domain.NormalizedActivity) {
	t.Helper()
	assert.True(t, normalization.IsSorted(feed), "feed must be newest first")
	seen := make(map[string]bool)
	for _, a := range feed {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestMergeNextPage_MonotonicAcrossPages(t *testing.T) {
	f := newFixture()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		f.ledger.Add(alice, payment(t, fmt.Sprintf("L%d", i), xrpl.ToRippleTime(base.Add(time.Duration(-i)*time.Hour)), bob, alice))
	}
	for i := 0; i < 5; i++ {
		f.tokens.Add(alice, swap(t, fmt.Sprintf("T%d", i), base.Add(time.Duration(-3*i)*time.Hour+30*time.Minute), "buy"))
	}
	for i := 0; i < 3; i++ {
		f.nfts.Add(alice, nftSale(fmt.Sprintf("N%d", i), base.Add(time.Duration(-5*i)*time.Hour+10*time.Minute), alice, bob))
	}

	agg := f.aggregator(alice, 2)
	ctx := context.Background()

	total := 0
	for i := 0; i < 10; i++ {
		res, err := agg.MergeNextPage(ctx)
		require.NoError(t, err)
		total += res.Added
		assertMonotonic(t, res.Feed)
		assert.Len(t, res.Feed, total)
		if res.Exhausted {
			break
		}
	}

	feed := agg.Feed()
	assert.Len(t, feed, 15)
	assertMonotonic(t, feed)
	for _, st := range agg.Statuses() {
		assert.True(t, st.Exhausted, st.Source)
		assert.Equal(t, domain.CursorReady, st.Status)
	}

	res, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.True(t, res.Exhausted)
}

func TestMergeNextPage_CrossSourceDedupPrefersLedger(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// The token-history record arrives on the first page, the ledger copy on
	// the second.
	f.ledger.Add(alice,
		payment(t, "AA", xrpl.ToRippleTime(ts.Add(time.Hour)), bob, alice),
		payment(t, "DUP", xrpl.ToRippleTime(ts), alice, bob),
	)
	f.tokens.Add(alice, swap(t, "dup", ts, "buy"))

	agg := f.aggregator(alice, 1)
	ctx := context.Background()

	res, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	byID := map[string]*domain.NormalizedActivity{}
	for _, a := range res.Feed {
		byID[a.ID] = a
	}
	require.Contains(t, byID, "DUP")
	assert.Equal(t, domain.SourceTokenHistory, byID["DUP"].Source)

	res, err = agg.MergeNextPage(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Added, "ledger copy replaces, it does not add")
	assert.Equal(t, 1, res.Replaced)
	assert.True(t, res.Changed())
	assert.Equal(t, []string{"AA", "DUP"}, ids(res.Feed))

	dup := res.Feed[1]
	assert.Equal(t, domain.SourceLedger, dup.Source)
	assert.Equal(t, domain.DirectionOut, dup.Direction, "ledger direction wins")
}

func TestMergeNextPage_SamePageDedup(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice, payment(t, "X1", xrpl.ToRippleTime(ts), alice, bob))
	f.tokens.Add(alice, swap(t, "x1", ts, "buy"))

	res, err := f.aggregator(alice, 10).MergeNextPage(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Feed, 1)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, domain.SourceLedger, res.Feed[0].Source)
	assert.Equal(t, domain.DirectionOut, res.Feed[0].Direction)
}

func TestMergeNextPage_StaleSessionDiscarded(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice, payment(t, "A1", xrpl.ToRippleTime(ts), bob, alice))
	f.tokens.Add(alice, swap(t, "a2", ts, "buy"))
	f.ledger.Add(bob, payment(t, "B1", xrpl.ToRippleTime(ts), alice, bob))
	f.tokens.Gate = make(chan struct{})

	agg := f.aggregator(alice, 10)

	done := make(chan error, 1)
	go func() {
		_, err := agg.MergeNextPage(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		for _, st := range agg.Statuses() {
			if st.Source == domain.SourceTokenHistory {
				return st.Status == domain.CursorLoading
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	agg.Reset(bob)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, domain.ErrStaleSession))
	case <-time.After(2 * time.Second):
		t.Fatal("stale fetch did not return")
	}
	assert.Empty(t, agg.Feed(), "late results of the old account must not leak")
	assert.Equal(t, bob, agg.Account())

	close(f.tokens.Gate)
	res, err := agg.MergeNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, ids(res.Feed))
}

func TestMergeNextPage_PartialFailure(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice, payment(t, "L1", xrpl.ToRippleTime(ts), bob, alice))
	f.nfts.Add(alice, nftSale("N1", ts.Add(-time.Hour), alice, bob))
	f.tokens.Err = errors.New("503 service unavailable")

	res, err := f.aggregator(alice, 10).MergeNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "N1"}, ids(res.Feed))

	statuses := map[domain.SourceID]domain.CursorState{}
	for _, st := range res.Statuses {
		statuses[st.Source] = st
	}
	token := statuses[domain.SourceTokenHistory]
	assert.Equal(t, domain.CursorPartialError, token.Status)
	assert.True(t, token.Exhausted)
	assert.Contains(t, token.LastError, "503")
	assert.Equal(t, domain.CursorReady, statuses[domain.SourceLedger].Status)
	assert.True(t, res.Exhausted)
}

func TestMergeNextPage_SkipsMalformed(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.nfts.Add(alice, nftSale("N1", ts, alice, bob), nfttrades.Trade{Hash: "broken"})

	res, err := f.aggregator(alice, 10).MergeNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"N1"}, ids(res.Feed))
}

func TestMergeNextPage_ArchivesNewRecords(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice,
		payment(t, "L1", xrpl.ToRippleTime(ts), bob, alice),
		payment(t, "L2", xrpl.ToRippleTime(ts.Add(-time.Hour)), bob, alice),
	)
	store := memory.NewActivityStore()
	agg := New(alice, Options{Sources: ingestion.Sources{Ledger: f.ledger}, Activities: store, Logger: quiet})

	_, err := agg.MergeNextPage(context.Background())
	require.NoError(t, err)

	n, err := store.Count(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMergeNextPage_CallerDeadlineKeepsArrivedPages(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice,
		payment(t, "A1", xrpl.ToRippleTime(ts), bob, alice),
		payment(t, "A2", xrpl.ToRippleTime(ts.Add(-2*time.Hour)), bob, alice),
	)
	f.tokens.Add(alice, swap(t, "t1", ts.Add(-time.Hour), "buy"))
	f.tokens.Gate = make(chan struct{})

	agg := f.aggregator(alice, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := agg.MergeNextPage(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, []string{"A1"}, ids(agg.Feed()), "the ledger page that arrived is kept")

	for _, st := range agg.Statuses() {
		if st.Source == domain.SourceTokenHistory {
			assert.False(t, st.Exhausted, "interrupted source stays live")
			assert.NotEqual(t, domain.CursorPartialError, st.Status)
			assert.Empty(t, st.LastError)
		}
	}

	close(f.tokens.Gate)
	res, err = agg.MergeNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "T1", "A2"}, ids(res.Feed))
	assertMonotonic(t, res.Feed)
}

func TestMergeNextPage_ArchivesReplacement(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice,
		payment(t, "AA", xrpl.ToRippleTime(ts.Add(time.Hour)), bob, alice),
		payment(t, "DUP", xrpl.ToRippleTime(ts), alice, bob),
	)
	f.tokens.Add(alice, swap(t, "dup", ts, "buy"))
	store := memory.NewActivityStore()
	agg := New(alice, Options{Sources: f.sources(1), Activities: store, Logger: quiet})
	ctx := context.Background()

	_, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)
	before := agg.Snapshot().Fingerprint()
	archived, err := store.GetByID(ctx, alice, "DUP")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTokenHistory, archived.Source)

	res, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replaced)
	assert.NotEqual(t, before, agg.Snapshot().Fingerprint(), "replacement changes the fingerprint")

	archived, err = store.GetByID(ctx, alice, "DUP")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLedger, archived.Source)
	assert.Equal(t, domain.DirectionOut, archived.Direction)
}

func TestFiltered_StableAcrossPages(t *testing.T) {
	f := newFixture()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		f.tokens.Add(alice, swap(t, fmt.Sprintf("s%d", i), base.Add(time.Duration(-2*i)*time.Hour), "buy"))
		f.ledger.Add(alice, payment(t, fmt.Sprintf("P%d", i), xrpl.ToRippleTime(base.Add(time.Duration(-2*i-1)*time.Hour)), bob, alice))
	}
	agg := f.aggregator(alice, 2)
	ctx := context.Background()
	filter := Filter{Query: "solo"}

	_, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)
	first := ids(agg.Filtered(filter))
	assert.Equal(t, []string{"S0", "S1"}, first)

	_, err = agg.MergeNextPage(ctx)
	require.NoError(t, err)
	second := ids(agg.Filtered(filter))
	assert.Equal(t, first, second[:len(first)], "earlier matches keep their order")
	assert.Equal(t, []string{"S0", "S1", "S2", "S3"}, second)

	payments := agg.Filtered(Filter{Kinds: []domain.TransactionKind{domain.KindPayment}})
	assert.Equal(t, []string{"P0", "P1", "P2", "P3"}, ids(payments))
}

func TestSummary_CachedUntilNextMerge(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice,
		payment(t, "L1", xrpl.ToRippleTime(ts), bob, alice),
		payment(t, "L2", xrpl.ToRippleTime(ts.Add(-time.Hour)), bob, alice),
	)
	agg := f.aggregator(alice, 1)
	ctx := context.Background()

	_, err := agg.MergeNextPage(ctx)
	require.NoError(t, err)

	s1, err := agg.Summary(domain.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, alice, s1.Account)
	assert.Equal(t, 1, s1.Activities)

	s2, err := agg.Summary(domain.WindowAll)
	require.NoError(t, err)
	assert.Same(t, s1, s2, "no merge, no recompute")

	_, err = agg.MergeNextPage(ctx)
	require.NoError(t, err)
	s3, err := agg.Summary(domain.WindowAll)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, s3.Activities)

	_, err = agg.Summary(domain.Window("2y"))
	assert.Error(t, err)
}

func TestRefreshPerformance(t *testing.T) {
	f := newFixture()
	roi := 4.0
	f.tokens.SetStats(alice, &tokenhistory.StatsPage{
		Data: []tokenhistory.PerformanceRecord{{
			TokenID: "SOLO.rSolo",
			Volume:  decimal.NewFromInt(100),
			XRPSold: decimal.NewFromInt(60),
			PnL:     decimal.NewFromInt(10),
		}},
		History: []tokenhistory.HistoryDay{
			{Date: json.RawMessage(`"2024-06-01"`), Volume: 10, Trades: 1, ROI: &roi},
			{Date: json.RawMessage(`"2024-06-04"`), Volume: 5, Trades: 2},
		},
	})
	series := memory.NewDailySeriesStore()
	now := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	agg := New(alice, Options{
		Sources: f.sources(10),
		Series:  series,
		Logger:  quiet,
		Now:     func() time.Time { return now },
	})

	points, err := agg.Series(domain.SeriesVolume)
	require.NoError(t, err)
	assert.Empty(t, points)

	require.NoError(t, agg.RefreshPerformance(context.Background()))

	sum, err := agg.Summary(domain.WindowAll)
	require.NoError(t, err)
	assert.True(t, sum.TokenPnL.Equal(decimal.NewFromInt(10)))

	points, err = agg.Series(domain.SeriesVolume)
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.Equal(t, 0.0, points[1].DailyValue)
	assert.Equal(t, 10.0, points[2].CumulativeValue)
	assert.Equal(t, 15.0, points[3].CumulativeValue)

	stored, err := series.Get(context.Background(), alice, domain.SeriesVolume)
	require.NoError(t, err)
	assert.Equal(t, points, stored)

	_, err = agg.Series(domain.SeriesKind("pnl"))
	assert.Error(t, err)
}

func TestRefreshPerformance_SourceError(t *testing.T) {
	f := newFixture()
	f.tokens.Err = errors.New("timeout")
	agg := f.aggregator(alice, 10)

	err := agg.RefreshPerformance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	var srcErr *domain.SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, domain.SourceTokenHistory, srcErr.Source)

	agg = New(alice, Options{Logger: quiet})
	assert.ErrorIs(t, agg.RefreshPerformance(context.Background()), ErrNoStatsSource)
}

func TestSnapshot_FingerprintTracksContent(t *testing.T) {
	f := newFixture()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.Add(alice,
		payment(t, "L1", xrpl.ToRippleTime(ts), bob, alice),
		payment(t, "L2", xrpl.ToRippleTime(ts.Add(-time.Hour)), bob, alice),
	)
	agg := f.aggregator(alice, 1)

	empty := agg.Snapshot().Fingerprint()
	_, err := agg.MergeNextPage(context.Background())
	require.NoError(t, err)
	one := agg.Snapshot()
	assert.NotEqual(t, empty, one.Fingerprint())
	assert.Equal(t, one.Fingerprint(), agg.Snapshot().Fingerprint())
	assert.Equal(t, uint64(1), one.Version)

	agg.Reset(alice)
	assert.Equal(t, empty, agg.Snapshot().Fingerprint())
	assert.Equal(t, uint64(2), agg.Snapshot().Session)
}
