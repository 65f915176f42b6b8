// Package tokenhistory is a client for the token-trade history API and its
// trader-stats endpoint.
package tokenhistory

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one leg of a token trade. Value stays raw so a single bad number
// does not fail the whole page.
type Asset struct {
	Currency string          `json:"currency"`
	Issuer   string          `json:"issuer,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// Decimal parses Value. ok is false when it is absent or unparsable.
func (a *Asset) Decimal() (d decimal.Decimal, ok bool) {
	if a == nil || len(a.Value) == 0 {
		return decimal.Zero, false
	}
	s := strings.Trim(string(bytes.TrimSpace(a.Value)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Record is one entry of the token-trade history.
type Record struct {
	Hash            string          `json:"hash"`
	Timestamp       json.RawMessage `json:"timestamp"`
	TransactionType string          `json:"transactionType,omitempty"`
	Type            string          `json:"type,omitempty"`
	PairType        string          `json:"pairType,omitempty"`
	Side            string          `json:"side,omitempty"`
	Account         string          `json:"account,omitempty"`
	Counterparty    string          `json:"counterparty,omitempty"`
	Base            *Asset          `json:"base,omitempty"`
	Quote           *Asset          `json:"quote,omitempty"`
	SourceTag       *uint32         `json:"sourceTag,omitempty"`
	LedgerIndex     int64           `json:"ledgerIndex,omitempty"`
	Result          string          `json:"result,omitempty"`
}

// Time parses the record timestamp: RFC 3339 strings, or unix seconds or
// milliseconds as numbers. ok is false when absent or unparsable.
func (r *Record) Time() (time.Time, bool) {
	return ParseTimestamp(r.Timestamp)
}

// ParseTimestamp parses an upstream timestamp field.
func ParseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse("2006-01-02", s); err == nil {
			return ts.UTC(), true
		}
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	// Values above 1e12 are milliseconds.
	if n > 1_000_000_000_000 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// Meta carries the continuation cursor.
type Meta struct {
	NextCursor *string `json:"nextCursor"`
}

// Page is one response of the history endpoint.
type Page struct {
	Data []Record `json:"data"`
	Meta Meta     `json:"meta"`
}

// HasMore reports whether a continuation cursor was returned.
func (p *Page) HasMore() bool {
	return p.Meta.NextCursor != nil
}

// ListParams are the history query parameters.
type ListParams struct {
	Account  string
	Limit    int
	Type     string
	PairType string
	Cursor   string
}

// PerformanceRecord is one token entry of the trader-stats endpoint.
type PerformanceRecord struct {
	TokenID        string          `json:"tokenId"`
	Currency       string          `json:"currency"`
	Issuer         string          `json:"issuer"`
	Volume         decimal.Decimal `json:"volume"`
	Trades         int             `json:"trades"`
	WinningTrades  int             `json:"winningTrades"`
	XRPBought      decimal.Decimal `json:"xrpBought"`
	XRPSold        decimal.Decimal `json:"xrpSold"`
	AvgBuyPrice    decimal.Decimal `json:"avgBuyPrice"`
	AvgSellPrice   decimal.Decimal `json:"avgSellPrice"`
	ROI            decimal.Decimal `json:"roi"`
	PnL            decimal.Decimal `json:"pnl"`
	HoldingValue   decimal.Decimal `json:"holdingValue"`
	UnrealizedPnL  decimal.Decimal `json:"unrealizedPnl"`
	FirstTradeDate json.RawMessage `json:"firstTradeDate,omitempty"`
	LastTradeDate  json.RawMessage `json:"lastTradeDate,omitempty"`
}

// WindowBlock is a pre-computed window of the trader-stats endpoint.
type WindowBlock struct {
	Volume *float64 `json:"volume"`
	Trades *int     `json:"trades"`
	Profit *float64 `json:"profit"`
	ROI    *float64 `json:"roi"`
}

// HistoryDay is one day of trader-stats history.
type HistoryDay struct {
	Date             json.RawMessage `json:"date"`
	Volume           float64         `json:"volume"`
	Trades           int             `json:"trades"`
	Profit           float64         `json:"profit"`
	ROI              *float64        `json:"roi"`
	CumulativeROI    *float64        `json:"cumulativeRoi,omitempty"`
	CumulativeTrades *float64        `json:"cumulativeTrades,omitempty"`
	CumulativeVolume *float64        `json:"cumulativeVolume,omitempty"`
}

// Totals are upstream account-wide trade counts.
type Totals struct {
	TotalTrades   *int `json:"totalTrades"`
	WinningTrades *int `json:"winningTrades"`
}

// StatsPage is one response of the trader-stats endpoint.
type StatsPage struct {
	Data    []PerformanceRecord    `json:"data"`
	Windows map[string]WindowBlock `json:"windows,omitempty"`
	History []HistoryDay           `json:"history,omitempty"`
	Totals  *Totals                `json:"totals,omitempty"`
	Meta    Meta                   `json:"meta"`
}
