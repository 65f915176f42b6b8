package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Account Activity Report\n\n")
	sb.WriteString(fmt.Sprintf("Account: %s\n\n", r.Account))
	sb.WriteString(fmt.Sprintf("Generated: %s | Window: %s\n\n", r.GeneratedAt.Format(time.RFC3339), r.Window))

	// Sources
	sb.WriteString("## Sources\n\n")
	sb.WriteString("| Source | Status | Fetched | Exhausted | Error |\n")
	sb.WriteString("|--------|--------|---------|-----------|-------|\n")
	for _, s := range r.Sources {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %t | %s |\n",
			s.Source, s.Status, s.Fetched, s.Exhausted, s.Error))
	}
	sb.WriteString("\n")

	// Feed
	sb.WriteString("## Feed\n\n")
	if r.Feed.Total == 0 {
		sb.WriteString("No activity loaded.\n\n")
	} else {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Activities | %d |\n", r.Feed.Total))
		sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Feed.Failed))
		sb.WriteString(fmt.Sprintf("| Dust | %d |\n", r.Feed.Dust))
		sb.WriteString(fmt.Sprintf("| Earliest | %s |\n", r.Feed.Earliest.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Latest | %s |\n", r.Feed.Latest.Format(time.RFC3339)))
		for _, kc := range r.Feed.ByKind {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", kc.Kind, kc.Count))
		}
		sb.WriteString("\n")
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	if s := r.Summary; s != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Total PnL (XRP) | %s |\n", s.TotalPnL.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| Token PnL (XRP) | %s |\n", s.TokenPnL.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| NFT PnL (XRP) | %s |\n", s.NFTPnL.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| Unrealized PnL (XRP) | %s |\n", s.UnrealizedPnL.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| Total Volume (XRP) | %s |\n", s.TotalVolume.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| DEX / AMM / NFT Volume | %s / %s / %s |\n",
			s.DEXVolume.StringFixed(6), s.AMMVolume.StringFixed(6), s.NFTVolume.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate))
		sb.WriteString(fmt.Sprintf("| ROI | %.2f%% |\n", s.ROI))
		if s.WinRateOrigin != "" {
			sb.WriteString(fmt.Sprintf("| Win Rate / ROI Origin | %s / %s |\n", s.WinRateOrigin, s.ROIOrigin))
		}
		if s.BestToken != nil {
			sb.WriteString(fmt.Sprintf("| Best Token | %s |\n", *s.BestToken))
		}
		if s.WorstToken != nil {
			sb.WriteString(fmt.Sprintf("| Worst Token | %s |\n", *s.WorstToken))
		}
	} else {
		sb.WriteString("No summary available.\n")
	}
	sb.WriteString("\n")

	// Windows
	sb.WriteString("## Windows\n\n")
	if len(r.Windows) > 0 {
		sb.WriteString("| Window | Origin | Volume | Trades | Profit | ROI |\n")
		sb.WriteString("|--------|--------|--------|--------|--------|-----|\n")
		for _, w := range r.Windows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %d | %.4f | %.2f |\n",
				w.Window, w.Origin, w.Volume, w.Trades, w.Profit, w.ROI))
		}
		sb.WriteString("\nPre-computed and derived windows are reported as delivered and are not reconciled.\n")
	} else {
		sb.WriteString("No windowed metrics available.\n")
	}
	sb.WriteString("\n")

	// Recent activity
	sb.WriteString("## Recent Activity\n\n")
	if len(r.Activity) > 0 {
		sb.WriteString("| Time | Kind | Direction | Amount | Hash |\n")
		sb.WriteString("|------|------|-----------|--------|------|\n")
		for _, a := range r.Activity {
			amount := "-"
			if a.Primary != nil {
				amount = a.Primary.Value.String() + " " + a.Primary.Currency
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				a.Timestamp.Format(time.RFC3339), a.Kind, a.Direction, amount, a.ID))
		}
	} else {
		sb.WriteString("No activity loaded.\n")
	}
	sb.WriteString("\n")

	// Series
	sb.WriteString("## Daily Series\n\n")
	for _, s := range r.Series {
		if s.Err != "" {
			sb.WriteString(fmt.Sprintf("- %s: error: %s\n", s.Kind, s.Err))
			continue
		}
		if len(s.Points) == 0 {
			sb.WriteString(fmt.Sprintf("- %s: no data\n", s.Kind))
			continue
		}
		last := s.Points[len(s.Points)-1]
		sb.WriteString(fmt.Sprintf("- %s: %d days, %s to %s, cumulative %.4f\n",
			s.Kind, len(s.Points),
			s.Points[0].Date.Format("2006-01-02"), last.Date.Format("2006-01-02"),
			last.CumulativeValue))
	}
	sb.WriteString("\n")

	return sb.String()
}
