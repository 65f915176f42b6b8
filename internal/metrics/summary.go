// Package metrics folds an activity feed and upstream trader stats into
// P&L, ROI, win-rate and volume summaries.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/domain"
)

// ErrInvalidWindow is returned for an unknown window name.
var ErrInvalidWindow = errors.New("invalid window")

// Summarize computes the trading summary of one account over window.
// stats may be nil when the trader-stats source is unavailable; the summary
// is then derived from the feed alone.
//
// Token P&L and volume come from the trader-stats records for WindowAll and
// from WindowMetrics for bounded windows. NFT and AMM figures always come from
// the feed filtered to the window. Win rate and ROI each take numerator and
// denominator from one origin, recorded in WinRateOrigin and ROIOrigin.
func Summarize(feed []*domain.NormalizedActivity, stats *domain.TraderStats, window domain.Window, now time.Time) (*domain.MetricsSummary, error) {
	if !window.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}
	now = now.UTC()
	since := windowStart(window, now)
	windowed := inWindow(feed, since)

	s := &domain.MetricsSummary{
		Window:      window,
		GeneratedAt: now,
		Activities:  len(windowed),
	}
	if stats != nil {
		s.Account = stats.Account
	}

	// Feed-derived figures.
	for _, a := range windowed {
		if a.Direction == domain.DirectionFailed {
			s.FailedCount++
		}
		if a.IsDust {
			s.DustCount++
		}
		v, ok := xrpValue(a)
		if !ok {
			continue
		}
		switch {
		case a.Kind.IsAMM():
			s.AMMVolume = s.AMMVolume.Add(v)
		case a.Kind == domain.KindNFTokenAcceptOffer && (a.Side == domain.SideBuy || a.Side == domain.SideSell):
			s.NFTVolume = s.NFTVolume.Add(v)
		}
	}

	nftCost := decimal.Zero
	nftWins := 0
	trips := nftRoundTrips(windowed)
	for _, rt := range trips {
		s.NFTPnL = s.NFTPnL.Add(rt.pnl())
		nftCost = nftCost.Add(rt.cost)
		if rt.pnl().IsPositive() {
			nftWins++
		}
	}

	// Token figures.
	tok := summarizeTokens(stats, window, since, now)
	s.TokenPnL = tok.pnl
	s.DEXVolume = tok.volume
	s.UnrealizedPnL = tok.unrealized
	s.HoldingValue = tok.holding
	s.BestToken = tok.best
	s.WorstToken = tok.worst
	s.WindowMetrics = tok.window

	s.TotalPnL = s.TokenPnL.Add(s.NFTPnL)
	s.TotalVolume = s.DEXVolume.Add(s.AMMVolume).Add(s.NFTVolume)

	// Window blocks and daily history carry no win counts, so upstream
	// totals are the only alternative to the records.
	trades, wins, origin := tok.closed, tok.wins, domain.OriginRecords
	if tok.totalTrades != nil && tok.totalWins != nil {
		trades, wins, origin = *tok.totalTrades, *tok.totalWins, domain.OriginTotals
	}
	s.TotalTrades = trades + len(trips)
	s.WinningTrades = wins + nftWins
	if s.WinningTrades > s.TotalTrades {
		s.WinningTrades = s.TotalTrades
	}
	s.WinRate = computeWinRate(s.WinningTrades, s.TotalTrades)
	s.WinRateOrigin = origin

	// A window block has no cost basis to add NFT trips to.
	if tok.window != nil && len(trips) == 0 {
		s.ROI = tok.window.ROI
		s.ROIOrigin = tok.window.Origin
	} else {
		s.ROI = computeROI(tok.recordPnL.Add(s.NFTPnL), tok.cost.Add(nftCost))
		s.ROIOrigin = domain.OriginRecords
	}
	return s, nil
}

type tokenSummary struct {
	pnl        decimal.Decimal
	volume     decimal.Decimal
	unrealized decimal.Decimal
	holding    decimal.Decimal
	best       *string
	worst      *string
	window     *domain.WindowMetrics

	// Records trading inside the window.
	recordPnL decimal.Decimal
	cost      decimal.Decimal
	closed    int
	wins      int

	// Upstream all-time totals, WindowAll only.
	totalTrades *int
	totalWins   *int
}

func summarizeTokens(stats *domain.TraderStats, window domain.Window, since, now time.Time) tokenSummary {
	var t tokenSummary
	if stats == nil {
		t.window = WindowMetrics(nil, window, now)
		return t
	}

	var best, worst *domain.TradePerformanceRecord
	for _, r := range stats.Records {
		if r == nil {
			continue
		}
		t.unrealized = t.unrealized.Add(r.UnrealizedPnL)
		t.holding = t.holding.Add(r.HoldingValue)

		if !since.IsZero() && r.LastTradeDate.Before(since) {
			continue
		}
		t.recordPnL = t.recordPnL.Add(r.PnL)
		t.volume = t.volume.Add(r.Volume)
		t.cost = t.cost.Add(r.XRPBought)
		if r.IsClosed() {
			t.closed++
			if r.PnL.IsPositive() {
				t.wins++
			}
		}
		if best == nil || r.PnL.GreaterThan(best.PnL) {
			best = r
		}
		if worst == nil || r.PnL.LessThan(worst.PnL) {
			worst = r
		}
	}
	t.pnl = t.recordPnL
	if best != nil {
		bestID, worstID := best.TokenID, worst.TokenID
		t.best, t.worst = &bestID, &worstID
	}

	if window == domain.WindowAll {
		t.totalTrades = stats.TotalTrades
		t.totalWins = stats.WinningTrades
		return t
	}

	// Bounded windows take volume and profit from one origin.
	wm := WindowMetrics(stats, window, now)
	t.window = wm
	t.pnl = decimal.NewFromFloat(wm.Profit)
	t.volume = decimal.NewFromFloat(wm.Volume)
	return t
}
