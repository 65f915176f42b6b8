package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// computeWinRate returns wins / total as a percentage, 0 when total is 0.
func computeWinRate(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	if wins > total {
		wins = total
	}
	return float64(wins) / float64(total) * 100
}

// computeROI returns pnl / cost as a percentage, 0 when cost is not positive.
func computeROI(pnl, cost decimal.Decimal) float64 {
	if !cost.IsPositive() {
		return 0
	}
	return pnl.Div(cost).Mul(hundred).InexactFloat64()
}

// computeMean calculates the arithmetic mean, 0 for no values.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// windowStart returns the inclusive lower bound of window relative to now.
// WindowAll has no bound and returns the zero time.
func windowStart(window domain.Window, now time.Time) time.Time {
	d := window.Duration()
	if d == 0 {
		return time.Time{}
	}
	return now.Add(-d)
}

// inWindow filters feed to activities at or after since, keeping order.
func inWindow(feed []*domain.NormalizedActivity, since time.Time) []*domain.NormalizedActivity {
	if since.IsZero() {
		return feed
	}
	out := make([]*domain.NormalizedActivity, 0, len(feed))
	for _, a := range feed {
		if a != nil && !a.Timestamp.Before(since) {
			out = append(out, a)
		}
	}
	return out
}

// xrpValue returns the absolute XRP leg of a successful activity.
func xrpValue(a *domain.NormalizedActivity) (decimal.Decimal, bool) {
	if a.Direction == domain.DirectionFailed {
		return decimal.Zero, false
	}
	leg := a.XRPLeg()
	if leg == nil {
		return decimal.Zero, false
	}
	return leg.Value.Abs(), true
}

// roundTrip is one NFT bought and later sold.
type roundTrip struct {
	tokenID string
	cost    decimal.Decimal
	revenue decimal.Decimal
}

func (r roundTrip) pnl() decimal.Decimal {
	return r.revenue.Sub(r.cost)
}

// nftRoundTrips pairs NFT buys with later sales of the same token, oldest
// buy first. Sales without a recorded purchase are not round trips.
func nftRoundTrips(feed []*domain.NormalizedActivity) []roundTrip {
	trades := make([]*domain.NormalizedActivity, 0)
	for _, a := range feed {
		if a == nil || a.Kind != domain.KindNFTokenAcceptOffer || a.NFTokenID == nil {
			continue
		}
		if a.Side != domain.SideBuy && a.Side != domain.SideSell {
			continue
		}
		if _, ok := xrpValue(a); !ok {
			continue
		}
		trades = append(trades, a)
	}

	// Oldest first; the feed is newest first.
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		}
		return trades[i].ID < trades[j].ID
	})

	open := make(map[string][]decimal.Decimal)
	var trips []roundTrip
	for _, a := range trades {
		id := *a.NFTokenID
		v, _ := xrpValue(a)
		if a.Side == domain.SideBuy {
			open[id] = append(open[id], v)
			continue
		}
		buys := open[id]
		if len(buys) == 0 {
			continue
		}
		trips = append(trips, roundTrip{tokenID: id, cost: buys[0], revenue: v})
		open[id] = buys[1:]
	}
	return trips
}
