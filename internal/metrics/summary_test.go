package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/domain"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func strPtr(v string) *string       { return &v }
func ago(d time.Duration) time.Time { return now.Add(-d) }

func nftTrade(id, token string, side domain.Side, xrp string, ts time.Time) *domain.NormalizedActivity {
	dir := domain.DirectionIn
	if side == domain.SideSell {
		dir = domain.DirectionOut
	}
	return &domain.NormalizedActivity{
		ID:        id,
		Timestamp: ts,
		Kind:      domain.KindNFTokenAcceptOffer,
		Direction: dir,
		Side:      side,
		NFTokenID: strPtr(token),
		Primary:   domain.NewXRPAmount(dec(xrp)),
	}
}

func fixtureStats() *domain.TraderStats {
	return &domain.TraderStats{
		Account: "rTrader",
		Records: []*domain.TradePerformanceRecord{
			{TokenID: "AAA.rIssuer", PnL: dec("10"), Volume: dec("100"), XRPBought: dec("50"), XRPSold: dec("60"), LastTradeDate: ago(2 * time.Hour)},
			{TokenID: "BBB.rIssuer", PnL: dec("-4"), Volume: dec("20"), XRPBought: dec("10"), XRPSold: dec("6"), LastTradeDate: ago(20 * 24 * time.Hour)},
			{TokenID: "CCC.rIssuer", Volume: dec("5"), XRPBought: dec("5"), UnrealizedPnL: dec("3"), HoldingValue: dec("8"), LastTradeDate: ago(100 * 24 * time.Hour)},
		},
	}
}

func fixtureFeed() []*domain.NormalizedActivity {
	return []*domain.NormalizedActivity{
		nftTrade("N2", "NFT1", domain.SideSell, "15", ago(time.Hour)),
		{
			ID:        "P1",
			Timestamp: ago(3 * time.Hour),
			Kind:      domain.KindPayment,
			Direction: domain.DirectionFailed,
			Primary:   domain.NewXRPAmount(dec("500")),
		},
		{
			ID:        "A1",
			Timestamp: ago(48 * time.Hour),
			Kind:      domain.KindAMMDeposit,
			Direction: domain.DirectionOut,
			Primary:   domain.NewXRPAmount(dec("25")),
			IsDust:    false,
		},
		nftTrade("N1", "NFT1", domain.SideBuy, "10", ago(72*time.Hour)),
	}
}

func TestSummarize_NoTradesWinRateZero(t *testing.T) {
	s, err := Summarize(nil, nil, domain.WindowAll, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalTrades != 0 {
		t.Errorf("expected 0 trades, got %d", s.TotalTrades)
	}
	if s.WinRate != 0 || math.IsNaN(s.WinRate) || math.IsInf(s.WinRate, 0) {
		t.Errorf("expected winRate 0, got %f", s.WinRate)
	}
	if s.ROI != 0 || math.IsNaN(s.ROI) {
		t.Errorf("expected ROI 0, got %f", s.ROI)
	}
	if !s.TotalPnL.IsZero() || !s.TotalVolume.IsZero() {
		t.Errorf("expected zero totals, got pnl=%s volume=%s", s.TotalPnL, s.TotalVolume)
	}
	if s.WindowMetrics != nil {
		t.Error("expected no window metrics for all")
	}
}

func TestSummarize_AllWindowTotals(t *testing.T) {
	s, err := Summarize(fixtureFeed(), fixtureStats(), domain.WindowAll, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"TokenPnL", s.TokenPnL, "6"},
		{"NFTPnL", s.NFTPnL, "5"},
		{"TotalPnL", s.TotalPnL, "11"},
		{"DEXVolume", s.DEXVolume, "125"},
		{"AMMVolume", s.AMMVolume, "25"},
		{"NFTVolume", s.NFTVolume, "25"},
		{"TotalVolume", s.TotalVolume, "175"},
		{"UnrealizedPnL", s.UnrealizedPnL, "3"},
		{"HoldingValue", s.HoldingValue, "8"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}

	if !s.TotalPnL.Equal(s.TokenPnL.Add(s.NFTPnL)) {
		t.Error("totalPnL must equal tokenPnL + nftPnL")
	}
	if !s.TotalVolume.Equal(s.DEXVolume.Add(s.AMMVolume).Add(s.NFTVolume)) {
		t.Error("totalVolume must equal dex + amm + nft volume")
	}

	// Two closed token positions (one winner) plus one winning NFT round trip.
	if s.TotalTrades != 3 || s.WinningTrades != 2 {
		t.Errorf("expected 3 trades / 2 wins, got %d / %d", s.TotalTrades, s.WinningTrades)
	}
	if math.Abs(s.WinRate-200.0/3) > 1e-9 {
		t.Errorf("expected winRate 66.67, got %f", s.WinRate)
	}

	// 11 / (65 + 10) * 100
	if math.Abs(s.ROI-11.0/75*100) > 1e-9 {
		t.Errorf("expected ROI %f, got %f", 11.0/75*100, s.ROI)
	}

	if s.BestToken == nil || *s.BestToken != "AAA.rIssuer" {
		t.Errorf("expected best token AAA.rIssuer, got %v", s.BestToken)
	}
	if s.WorstToken == nil || *s.WorstToken != "BBB.rIssuer" {
		t.Errorf("expected worst token BBB.rIssuer, got %v", s.WorstToken)
	}

	if s.Account != "rTrader" || s.Activities != 4 || s.FailedCount != 1 {
		t.Errorf("unexpected counts: account=%s activities=%d failed=%d", s.Account, s.Activities, s.FailedCount)
	}
}

func TestSummarize_UpstreamTotalsPreferred(t *testing.T) {
	stats := fixtureStats()
	stats.TotalTrades = intPtr(10)
	stats.WinningTrades = intPtr(4)

	s, err := Summarize(nil, stats, domain.WindowAll, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalTrades != 10 || s.WinningTrades != 4 {
		t.Errorf("expected upstream totals 10/4, got %d/%d", s.TotalTrades, s.WinningTrades)
	}
	if s.WinRate != 40 || s.WinRateOrigin != domain.OriginTotals {
		t.Errorf("expected winRate 40 from totals, got %f from %s", s.WinRate, s.WinRateOrigin)
	}
}

func TestSummarize_PrecomputedWindow(t *testing.T) {
	stats := fixtureStats()
	stats.Windows = map[domain.Window]*domain.WindowStats{
		domain.Window7d: {Volume: floatPtr(300), Trades: intPtr(6), Profit: floatPtr(12.5), ROI: floatPtr(7)},
	}
	stats.History = []domain.DailyRecord{
		{Date: ago(24 * time.Hour).Truncate(24 * time.Hour), Volume: 999, Trades: 99, Profit: 99},
	}

	s, err := Summarize(nil, stats, domain.Window7d, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wm := s.WindowMetrics
	if wm == nil {
		t.Fatal("expected window metrics")
	}
	if wm.Origin != domain.OriginPrecomputed {
		t.Errorf("expected precomputed origin, got %s", wm.Origin)
	}
	if wm.Volume != 300 || wm.Trades != 6 || wm.Profit != 12.5 || wm.ROI != 7 {
		t.Errorf("unexpected window values: %+v", wm)
	}
	if !s.TokenPnL.Equal(dec("12.5")) || !s.DEXVolume.Equal(dec("300")) {
		t.Errorf("expected token figures from the window block, got pnl=%s volume=%s", s.TokenPnL, s.DEXVolume)
	}
	// Win rate stays on the records trading inside the window: AAA only.
	if s.TotalTrades != 1 || s.WinningTrades != 1 || s.WinRate != 100 {
		t.Errorf("expected 1/1 trades at 100%%, got %d/%d at %f", s.TotalTrades, s.WinningTrades, s.WinRate)
	}
	if s.WinRateOrigin != domain.OriginRecords {
		t.Errorf("expected records win-rate origin, got %s", s.WinRateOrigin)
	}
	if s.ROI != 7 || s.ROIOrigin != domain.OriginPrecomputed {
		t.Errorf("expected ROI 7 from the block, got %f from %s", s.ROI, s.ROIOrigin)
	}
}

func TestSummarize_WinRateNeverMixesOrigins(t *testing.T) {
	stats := &domain.TraderStats{
		Records: []*domain.TradePerformanceRecord{
			{TokenID: "AAA.rIssuer", PnL: dec("5"), XRPBought: dec("20"), XRPSold: dec("25"), LastTradeDate: ago(time.Hour)},
		},
		Windows: map[domain.Window]*domain.WindowStats{
			domain.Window7d: {Volume: floatPtr(400), Trades: intPtr(10), Profit: floatPtr(2), ROI: floatPtr(1)},
		},
	}

	for _, w := range []domain.Window{domain.Window7d, domain.WindowAll} {
		s, err := Summarize(nil, stats, w, now)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", w, err)
		}
		if s.TotalTrades != 1 || s.WinningTrades != 1 || s.WinRate != 100 {
			t.Errorf("%s: expected 1/1 at 100%%, got %d/%d at %f", w, s.TotalTrades, s.WinningTrades, s.WinRate)
		}
		if s.WinRateOrigin != domain.OriginRecords {
			t.Errorf("%s: expected records origin, got %s", w, s.WinRateOrigin)
		}
	}

	// With an NFT round trip the block ROI cannot absorb the NFT cost, so
	// both profit and cost come from the records.
	feed := []*domain.NormalizedActivity{
		nftTrade("S1", "NFT1", domain.SideSell, "15", ago(time.Hour)),
		nftTrade("B1", "NFT1", domain.SideBuy, "10", ago(2*time.Hour)),
	}
	s, err := Summarize(feed, stats, domain.Window7d, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ROIOrigin != domain.OriginRecords {
		t.Errorf("expected records ROI origin, got %s", s.ROIOrigin)
	}
	// (5 + 5) / (20 + 10) * 100
	if math.Abs(s.ROI-10.0/30*100) > 1e-9 {
		t.Errorf("expected ROI %f, got %f", 10.0/30*100, s.ROI)
	}
	if !s.TokenPnL.Equal(dec("2")) {
		t.Errorf("expected token pnl from the block, got %s", s.TokenPnL)
	}
}

func TestSummarize_PartialUpstreamTotalsIgnored(t *testing.T) {
	stats := fixtureStats()
	stats.TotalTrades = intPtr(10)

	s, err := Summarize(nil, stats, domain.WindowAll, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TotalTrades != 2 || s.WinningTrades != 1 || s.WinRateOrigin != domain.OriginRecords {
		t.Errorf("expected 2/1 from records, got %d/%d from %s", s.TotalTrades, s.WinningTrades, s.WinRateOrigin)
	}
}

func TestSummarize_WindowFiltersFeed(t *testing.T) {
	s, err := Summarize(fixtureFeed(), nil, domain.Window24h, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the NFT sale and the failed payment fall inside 24h; the sale has
	// no matching buy inside the window.
	if s.Activities != 2 {
		t.Errorf("expected 2 activities, got %d", s.Activities)
	}
	if !s.NFTVolume.Equal(dec("15")) {
		t.Errorf("expected nft volume 15, got %s", s.NFTVolume)
	}
	if !s.AMMVolume.IsZero() {
		t.Errorf("expected zero amm volume, got %s", s.AMMVolume)
	}
	if !s.NFTPnL.IsZero() {
		t.Errorf("expected zero nft pnl, got %s", s.NFTPnL)
	}
	if s.WindowMetrics == nil || s.WindowMetrics.Origin != domain.OriginDerived {
		t.Error("expected derived window metrics without stats")
	}
}

func TestSummarize_InvalidWindow(t *testing.T) {
	_, err := Summarize(nil, nil, domain.Window("2y"), now)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestNFTRoundTrips(t *testing.T) {
	feed := []*domain.NormalizedActivity{
		nftTrade("S3", "T1", domain.SideSell, "30", ago(time.Hour)),
		nftTrade("S2", "T1", domain.SideSell, "8", ago(2*time.Hour)),
		nftTrade("B2", "T1", domain.SideBuy, "20", ago(3*time.Hour)),
		nftTrade("B1", "T1", domain.SideBuy, "10", ago(4*time.Hour)),
		nftTrade("S1", "T2", domain.SideSell, "99", ago(5*time.Hour)),
	}

	trips := nftRoundTrips(feed)
	if len(trips) != 2 {
		t.Fatalf("expected 2 round trips, got %d", len(trips))
	}
	// Oldest buy pairs with the oldest sale.
	if !trips[0].cost.Equal(dec("10")) || !trips[0].revenue.Equal(dec("8")) {
		t.Errorf("unexpected first trip: cost=%s revenue=%s", trips[0].cost, trips[0].revenue)
	}
	if !trips[1].pnl().Equal(dec("10")) {
		t.Errorf("expected second trip pnl 10, got %s", trips[1].pnl())
	}
}
