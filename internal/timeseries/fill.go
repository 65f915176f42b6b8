// Package timeseries builds dense daily series for charting from sparse
// daily records.
package timeseries

import (
	"fmt"
	"time"

	"xrpl-activity-lab/internal/domain"
)

// OrderingError reports a point whose day is not after the previous day.
type OrderingError struct {
	Index    int
	Previous time.Time
	Date     time.Time
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("%s: point %d (%s) does not follow %s",
		domain.ErrOrdering, e.Index, e.Date.Format(time.DateOnly), e.Previous.Format(time.DateOnly))
}

// Unwrap returns domain.ErrOrdering.
func (e *OrderingError) Unwrap() error {
	return domain.ErrOrdering
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Fill returns one point per calendar day from the first to the last input
// day inclusive. Dates are truncated to UTC days and consecutive points on
// the same day are collapsed: daily values are summed and the latest
// cumulative value is kept. Missing days get a zero daily value and carry
// the previous cumulative value forward.
//
// The input must be ascending; Fill does not sort. A day that is not
// strictly after the previous one yields an *OrderingError.
func Fill(points []domain.DailySeriesPoint) ([]domain.DailySeriesPoint, error) {
	if len(points) == 0 {
		return []domain.DailySeriesPoint{}, nil
	}

	compact := make([]domain.DailySeriesPoint, 0, len(points))
	for i, p := range points {
		p.Date = Day(p.Date)
		if n := len(compact); n > 0 {
			last := &compact[n-1]
			if p.Date.Equal(last.Date) {
				last.DailyValue += p.DailyValue
				last.CumulativeValue = p.CumulativeValue
				continue
			}
			if p.Date.Before(last.Date) {
				return nil, &OrderingError{Index: i, Previous: last.Date, Date: p.Date}
			}
		}
		compact = append(compact, p)
	}

	first, last := compact[0].Date, compact[len(compact)-1].Date
	days := int(last.Sub(first).Hours()/24) + 1

	out := make([]domain.DailySeriesPoint, 0, days)
	next := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if compact[next].Date.Equal(d) {
			out = append(out, compact[next])
			next++
			continue
		}
		out = append(out, domain.DailySeriesPoint{
			Date:            d,
			CumulativeValue: out[len(out)-1].CumulativeValue,
		})
	}
	return out, nil
}
