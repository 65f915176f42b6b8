package metrics

import (
	"time"

	"xrpl-activity-lab/internal/domain"
)

// WindowMetrics returns the volume, trades, profit and ROI of one bounded
// window. A complete upstream block is used as-is; otherwise every value is
// derived from the daily history. The two origins are never mixed and are
// not reconciled against each other. Returns nil for WindowAll.
func WindowMetrics(stats *domain.TraderStats, window domain.Window, now time.Time) *domain.WindowMetrics {
	if window.Duration() == 0 {
		return nil
	}
	if stats != nil {
		if block := stats.Windows[window]; block.Complete() {
			return &domain.WindowMetrics{
				Window: window,
				Origin: domain.OriginPrecomputed,
				Volume: *block.Volume,
				Trades: *block.Trades,
				Profit: *block.Profit,
				ROI:    *block.ROI,
			}
		}
	}
	return deriveWindow(stats, window, now)
}

// deriveWindow sums volume, trades and profit over daily records on or after
// now - window, and averages the ROI of the days that report one.
func deriveWindow(stats *domain.TraderStats, window domain.Window, now time.Time) *domain.WindowMetrics {
	wm := &domain.WindowMetrics{Window: window, Origin: domain.OriginDerived}
	if stats == nil {
		return wm
	}

	since := windowStart(window, now.UTC())
	var rois []float64
	for _, day := range stats.History {
		if day.Date.Before(since) || day.Date.After(now) {
			continue
		}
		wm.Volume += day.Volume
		wm.Trades += day.Trades
		wm.Profit += day.Profit
		if day.ROI != nil {
			rois = append(rois, *day.ROI)
		}
		wm.Days++
	}
	wm.ROI = computeMean(rois)
	return wm
}
