package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xrpl-activity-lab/internal/domain"
)

// RenderActivityCSV renders activities as CSV string, one row per activity.
func RenderActivityCSV(feed []*domain.NormalizedActivity) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	w.Write([]string{
		"id", "timestamp", "kind", "direction", "side", "source",
		"primary_value", "primary_currency", "primary_issuer",
		"secondary_value", "secondary_currency", "secondary_issuer",
		"counterparty", "source_tag", "is_dust", "nftoken_id", "result",
	})

	// Rows
	for _, a := range feed {
		pv, pc, pi := amountCells(a.Primary)
		sv, sc, si := amountCells(a.Secondary)
		tag := ""
		if a.SourceTag != nil {
			tag = a.SourceTag.String()
		}
		w.Write([]string{
			a.ID,
			a.Timestamp.UTC().Format(time.RFC3339),
			string(a.Kind),
			string(a.Direction),
			string(a.Side),
			string(a.Source),
			pv, pc, pi,
			sv, sc, si,
			deref(a.Counterparty),
			tag,
			strconv.FormatBool(a.IsDust),
			deref(a.NFTokenID),
			a.Result,
		})
	}

	w.Flush()
	return sb.String()
}

// RenderSeriesCSV renders one daily series as CSV string.
func RenderSeriesCSV(points []domain.DailySeriesPoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,daily_value,cumulative_value\n")

	// Rows
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f\n",
			p.Date.UTC().Format("2006-01-02"),
			p.DailyValue,
			p.CumulativeValue,
		))
	}

	return sb.String()
}

func amountCells(a *domain.Amount) (value, currency, issuer string) {
	if a == nil {
		return "", "", ""
	}
	return a.Value.String(), a.Currency, deref(a.Issuer)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
