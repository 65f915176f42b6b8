package tokenhistory

import (
	"sort"
	"time"

	"xrpl-activity-lab/internal/currency"
	"xrpl-activity-lab/internal/domain"
)

// windowAliases maps upstream window keys to domain windows.
var windowAliases = map[string]domain.Window{
	"24h": domain.Window24h,
	"1d":  domain.Window24h,
	"7d":  domain.Window7d,
	"1w":  domain.Window7d,
	"1m":  domain.Window1m,
	"30d": domain.Window1m,
	"3m":  domain.Window3m,
	"90d": domain.Window3m,
}

// ToTraderStats converts a trader-stats response into domain form. Records
// with a repeated token id replace earlier ones. History is sorted by day
// and days with an unparsable date are dropped.
func ToTraderStats(account string, page *StatsPage, codec *currency.Codec, now time.Time) *domain.TraderStats {
	stats := &domain.TraderStats{
		Account:   account,
		Windows:   make(map[domain.Window]*domain.WindowStats),
		FetchedAt: now.UTC(),
	}
	if page == nil {
		return stats
	}

	index := make(map[string]int)
	for i := range page.Data {
		rec := toRecord(&page.Data[i], codec)
		if pos, ok := index[rec.TokenID]; ok {
			stats.Records[pos] = rec
			continue
		}
		index[rec.TokenID] = len(stats.Records)
		stats.Records = append(stats.Records, rec)
	}

	for key, block := range page.Windows {
		w, ok := windowAliases[key]
		if !ok {
			continue
		}
		b := block
		stats.Windows[w] = &domain.WindowStats{
			Volume: b.Volume,
			Trades: b.Trades,
			Profit: b.Profit,
			ROI:    b.ROI,
		}
	}

	for _, day := range page.History {
		date, ok := ParseTimestamp(day.Date)
		if !ok {
			continue
		}
		stats.History = append(stats.History, domain.DailyRecord{
			Date:             date.Truncate(24 * time.Hour),
			Volume:           day.Volume,
			Trades:           day.Trades,
			Profit:           day.Profit,
			ROI:              day.ROI,
			CumulativeROI:    day.CumulativeROI,
			CumulativeTrades: day.CumulativeTrades,
			CumulativeVolume: day.CumulativeVolume,
		})
	}
	sort.SliceStable(stats.History, func(i, j int) bool {
		return stats.History[i].Date.Before(stats.History[j].Date)
	})

	if page.Totals != nil {
		stats.TotalTrades = page.Totals.TotalTrades
		stats.WinningTrades = page.Totals.WinningTrades
	}
	return stats
}

func toRecord(p *PerformanceRecord, codec *currency.Codec) *domain.TradePerformanceRecord {
	tokenID := p.TokenID
	if tokenID == "" {
		tokenID = p.Currency + "." + p.Issuer
	}
	rec := &domain.TradePerformanceRecord{
		TokenID:       tokenID,
		Currency:      codec.Decode(p.Currency),
		Issuer:        p.Issuer,
		Volume:        p.Volume,
		Trades:        p.Trades,
		WinningTrades: p.WinningTrades,
		XRPBought:     p.XRPBought,
		XRPSold:       p.XRPSold,
		AvgBuyPrice:   p.AvgBuyPrice,
		AvgSellPrice:  p.AvgSellPrice,
		ROI:           p.ROI,
		PnL:           p.PnL,
		HoldingValue:  p.HoldingValue,
		UnrealizedPnL: p.UnrealizedPnL,
	}
	if ts, ok := ParseTimestamp(p.FirstTradeDate); ok {
		rec.FirstTradeDate = ts
	}
	if ts, ok := ParseTimestamp(p.LastTradeDate); ok {
		rec.LastTradeDate = ts
	}
	return rec
}
