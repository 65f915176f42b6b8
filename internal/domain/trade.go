package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradePerformanceRecord is the upstream trader-stats view of one (account, token) pair.
// A newer record for the same token replaces the older one wholesale.
type TradePerformanceRecord struct {
	TokenID        string // currency.issuer
	Currency       string // display name
	Issuer         string
	Volume         decimal.Decimal // XRP
	Trades         int
	WinningTrades  int
	XRPBought      decimal.Decimal // XRP spent buying the token
	XRPSold        decimal.Decimal // XRP received selling the token
	AvgBuyPrice    decimal.Decimal
	AvgSellPrice   decimal.Decimal
	ROI            decimal.Decimal // percent
	PnL            decimal.Decimal // realized, XRP
	HoldingValue   decimal.Decimal // XRP
	UnrealizedPnL  decimal.Decimal // XRP
	FirstTradeDate time.Time
	LastTradeDate  time.Time
}

// IsClosed reports whether any of the position was sold.
func (r *TradePerformanceRecord) IsClosed() bool {
	return r.XRPSold.IsPositive()
}

// WindowStats is an upstream pre-computed block for one window.
// Any nil field means the block is incomplete.
type WindowStats struct {
	Volume *float64
	Trades *int
	Profit *float64
	ROI    *float64
}

// Complete reports whether every field of the block is present.
func (w *WindowStats) Complete() bool {
	return w != nil && w.Volume != nil && w.Trades != nil && w.Profit != nil && w.ROI != nil
}

// DailyRecord is one day of upstream trading history.
type DailyRecord struct {
	Date   time.Time // UTC day
	Volume float64
	Trades int
	Profit float64
	ROI    *float64 // nil when the day has no ROI data

	// Pre-supplied cumulative values; nil when the upstream omits them.
	CumulativeROI    *float64
	CumulativeTrades *float64
	CumulativeVolume *float64
}

// TraderStats is one fetch of the trader-stats source.
type TraderStats struct {
	Account       string
	Records       []*TradePerformanceRecord
	Windows       map[Window]*WindowStats
	History       []DailyRecord
	TotalTrades   *int
	WinningTrades *int
	FetchedAt     time.Time
}
