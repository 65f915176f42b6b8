package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is a metrics aggregation window.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window1m  Window = "1m"
	Window3m  Window = "3m"
	WindowAll Window = "all"
)

// Windows lists the bounded windows.
var Windows = []Window{Window24h, Window7d, Window1m, Window3m}

// Duration returns the window length. WindowAll returns 0.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	case Window1m:
		return 30 * 24 * time.Hour
	case Window3m:
		return 90 * 24 * time.Hour
	}
	return 0
}

// IsValid checks if the window is a valid value.
func (w Window) IsValid() bool {
	return w == WindowAll || w.Duration() > 0
}

// ParseWindow parses a window name, defaulting to WindowAll for empty input.
func ParseWindow(s string) (Window, bool) {
	if s == "" {
		return WindowAll, true
	}
	w := Window(s)
	return w, w.IsValid()
}

// MetricsOrigin tells where windowed values came from.
type MetricsOrigin string

const (
	OriginPrecomputed MetricsOrigin = "precomputed" // upstream window block
	OriginDerived     MetricsOrigin = "derived"     // daily history
	OriginTotals      MetricsOrigin = "totals"      // upstream all-time trade totals
	OriginRecords     MetricsOrigin = "records"     // performance records and NFT round trips
)

// WindowMetrics are the volume/trades/profit/roi values of one window,
// taken from a single origin.
type WindowMetrics struct {
	Window Window
	Origin MetricsOrigin
	Volume float64
	Trades int
	Profit float64
	ROI    float64 // arithmetic mean of daily ROI when derived
	Days   int     // daily records used when derived
}

// MetricsSummary is the derived trading summary of an account.
type MetricsSummary struct {
	Account     string
	Window      Window
	GeneratedAt time.Time

	TokenPnL      decimal.Decimal
	NFTPnL        decimal.Decimal
	TotalPnL      decimal.Decimal
	UnrealizedPnL decimal.Decimal
	HoldingValue  decimal.Decimal

	DEXVolume   decimal.Decimal
	AMMVolume   decimal.Decimal
	NFTVolume   decimal.Decimal
	TotalVolume decimal.Decimal

	// TotalTrades and WinningTrades always come from WinRateOrigin, so
	// they may differ from WindowMetrics.Trades.
	TotalTrades   int
	WinningTrades int
	WinRate       float64 // percent, 0 when no trades
	WinRateOrigin MetricsOrigin
	ROI           float64 // percent
	ROIOrigin     MetricsOrigin

	BestToken  *string
	WorstToken *string

	Activities    int
	FailedCount   int
	DustCount     int
	WindowMetrics *WindowMetrics // nil for WindowAll
}
