package api

import (
	"time"

	"xrpl-activity-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// AmountJSON is an amount with its value as a decimal string.
type AmountJSON struct {
	Value       string  `json:"value"`
	Currency    string  `json:"currency"`
	RawCurrency string  `json:"raw_currency"`
	Issuer      *string `json:"issuer,omitempty"`
}

// SourceTagJSON is a source tag and its integrator label.
type SourceTagJSON struct {
	Value uint32 `json:"value"`
	Label string `json:"label,omitempty"`
}

// ActivityJSON is one entry of the feed.
type ActivityJSON struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Direction    string         `json:"direction"`
	Kind         string         `json:"kind"`
	Sender       string         `json:"sender,omitempty"`
	Side         string         `json:"side,omitempty"`
	Counterparty *string        `json:"counterparty,omitempty"`
	Primary      *AmountJSON    `json:"primary,omitempty"`
	Secondary    *AmountJSON    `json:"secondary,omitempty"`
	SourceTag    *SourceTagJSON `json:"source_tag,omitempty"`
	IsDust       bool           `json:"is_dust"`
	NFTokenID    *string        `json:"nftoken_id,omitempty"`
	Source       string         `json:"source"`
	Result       string         `json:"result,omitempty"`
	LedgerIndex  int64          `json:"ledger_index,omitempty"`
	Fee          *AmountJSON    `json:"fee,omitempty"`
}

// SourceStatusJSON is the state of one source cursor.
type SourceStatusJSON struct {
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	Exhausted     bool       `json:"exhausted"`
	NextToken     string     `json:"next_token,omitempty"`
	Fetched       int        `json:"fetched"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// ActivityResponse is the body of GET .../activity.
type ActivityResponse struct {
	Account    string             `json:"account"`
	Count      int                `json:"count"`
	Activities []ActivityJSON     `json:"activities"`
	Sources    []SourceStatusJSON `json:"sources"`
}

// MergeResponse is the body of POST .../activity/next.
type MergeResponse struct {
	Account   string             `json:"account"`
	Session   uint64             `json:"session"`
	Added     int                `json:"added"`
	Count     int                `json:"count"`
	Exhausted bool               `json:"exhausted"`
	Sources   []SourceStatusJSON `json:"sources"`
}

// WindowMetricsJSON are the windowed values and their origin.
type WindowMetricsJSON struct {
	Window string  `json:"window"`
	Origin string  `json:"origin"`
	Volume float64 `json:"volume"`
	Trades int     `json:"trades"`
	Profit float64 `json:"profit"`
	ROI    float64 `json:"roi"`
	Days   int     `json:"days,omitempty"`
}

// SummaryResponse is the body of GET .../metrics.
type SummaryResponse struct {
	Account       string             `json:"account"`
	Window        string             `json:"window"`
	GeneratedAt   time.Time          `json:"generated_at"`
	TokenPnL      string             `json:"token_pnl"`
	NFTPnL        string             `json:"nft_pnl"`
	TotalPnL      string             `json:"total_pnl"`
	UnrealizedPnL string             `json:"unrealized_pnl"`
	HoldingValue  string             `json:"holding_value"`
	DEXVolume     string             `json:"dex_volume"`
	AMMVolume     string             `json:"amm_volume"`
	NFTVolume     string             `json:"nft_volume"`
	TotalVolume   string             `json:"total_volume"`
	TotalTrades   int                `json:"total_trades"`
	WinningTrades int                `json:"winning_trades"`
	WinRate       float64            `json:"win_rate"`
	WinRateOrigin string             `json:"win_rate_origin,omitempty"`
	ROI           float64            `json:"roi"`
	ROIOrigin     string             `json:"roi_origin,omitempty"`
	BestToken     *string            `json:"best_token,omitempty"`
	WorstToken    *string            `json:"worst_token,omitempty"`
	Activities    int                `json:"activities"`
	FailedCount   int                `json:"failed_count"`
	DustCount     int                `json:"dust_count"`
	WindowMetrics *WindowMetricsJSON `json:"window_metrics,omitempty"`
}

// PointJSON is one day of a series.
type PointJSON struct {
	Date       string  `json:"date"`
	Daily      float64 `json:"daily"`
	Cumulative float64 `json:"cumulative"`
}

// SeriesResponse is the body of GET .../series/{kind}.
type SeriesResponse struct {
	Account string      `json:"account"`
	Kind    string      `json:"kind"`
	Points  []PointJSON `json:"points"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toAmountJSON(a *domain.Amount) *AmountJSON {
	if a == nil {
		return nil
	}
	return &AmountJSON{
		Value:       a.Value.String(),
		Currency:    a.Currency,
		RawCurrency: a.RawCurrency,
		Issuer:      a.Issuer,
	}
}

func toActivityJSON(a *domain.NormalizedActivity) ActivityJSON {
	out := ActivityJSON{
		ID:           a.ID,
		Timestamp:    a.Timestamp,
		Direction:    string(a.Direction),
		Kind:         a.Kind.String(),
		Sender:       a.Sender,
		Side:         string(a.Side),
		Counterparty: a.Counterparty,
		Primary:      toAmountJSON(a.Primary),
		Secondary:    toAmountJSON(a.Secondary),
		IsDust:       a.IsDust,
		NFTokenID:    a.NFTokenID,
		Source:       a.Source.String(),
		Result:       a.Result,
		LedgerIndex:  a.LedgerIndex,
		Fee:          toAmountJSON(a.Fee),
	}
	if a.SourceTag != nil {
		out.SourceTag = &SourceTagJSON{Value: a.SourceTag.Value, Label: a.SourceTag.Label}
	}
	return out
}

func toActivitiesJSON(feed []*domain.NormalizedActivity) []ActivityJSON {
	out := make([]ActivityJSON, len(feed))
	for i, a := range feed {
		out[i] = toActivityJSON(a)
	}
	return out
}

func toStatusesJSON(states []domain.CursorState) []SourceStatusJSON {
	out := make([]SourceStatusJSON, len(states))
	for i, st := range states {
		out[i] = SourceStatusJSON{
			Source:    st.Source.String(),
			Status:    string(st.Status),
			Exhausted: st.Exhausted,
			NextToken: st.NextToken,
			Fetched:   st.Fetched,
			LastError: st.LastError,
		}
		if !st.LastFetchedAt.IsZero() {
			ts := st.LastFetchedAt
			out[i].LastFetchedAt = &ts
		}
	}
	return out
}

func toSummaryResponse(s *domain.MetricsSummary) SummaryResponse {
	out := SummaryResponse{
		Account:       s.Account,
		Window:        string(s.Window),
		GeneratedAt:   s.GeneratedAt,
		TokenPnL:      s.TokenPnL.String(),
		NFTPnL:        s.NFTPnL.String(),
		TotalPnL:      s.TotalPnL.String(),
		UnrealizedPnL: s.UnrealizedPnL.String(),
		HoldingValue:  s.HoldingValue.String(),
		DEXVolume:     s.DEXVolume.String(),
		AMMVolume:     s.AMMVolume.String(),
		NFTVolume:     s.NFTVolume.String(),
		TotalVolume:   s.TotalVolume.String(),
		TotalTrades:   s.TotalTrades,
		WinningTrades: s.WinningTrades,
		WinRate:       s.WinRate,
		WinRateOrigin: string(s.WinRateOrigin),
		ROI:           s.ROI,
		ROIOrigin:     string(s.ROIOrigin),
		BestToken:     s.BestToken,
		WorstToken:    s.WorstToken,
		Activities:    s.Activities,
		FailedCount:   s.FailedCount,
		DustCount:     s.DustCount,
	}
	if wm := s.WindowMetrics; wm != nil {
		out.WindowMetrics = &WindowMetricsJSON{
			Window: string(wm.Window),
			Origin: string(wm.Origin),
			Volume: wm.Volume,
			Trades: wm.Trades,
			Profit: wm.Profit,
			ROI:    wm.ROI,
			Days:   wm.Days,
		}
	}
	return out
}

func toPointsJSON(points []domain.DailySeriesPoint) []PointJSON {
	out := make([]PointJSON, len(points))
	for i, p := range points {
		out[i] = PointJSON{
			Date:       p.Date.UTC().Format(dateLayout),
			Daily:      p.DailyValue,
			Cumulative: p.CumulativeValue,
		}
	}
	return out
}
