package timeseries

import (
	"errors"
	"fmt"

	"xrpl-activity-lab/internal/domain"
)

// ErrInvalidKind is returned for an unknown series kind.
var ErrInvalidKind = errors.New("invalid series kind")

// FromHistory builds the sparse series of one metric from daily records.
// The cumulative value is the upstream one when supplied; otherwise it is a
// running sum of daily values, resuming from the last supplied value.
// Days without ROI data contribute 0 to the ROI series.
func FromHistory(history []domain.DailyRecord, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	points := make([]domain.DailySeriesPoint, 0, len(history))
	running := 0.0
	for _, rec := range history {
		daily, supplied := values(rec, kind)
		if supplied != nil {
			running = *supplied
		} else {
			running += daily
		}
		points = append(points, domain.DailySeriesPoint{
			Date:            Day(rec.Date),
			DailyValue:      daily,
			CumulativeValue: running,
		})
	}
	return points, nil
}

// Build returns the dense series of one metric.
func Build(history []domain.DailyRecord, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	sparse, err := FromHistory(history, kind)
	if err != nil {
		return nil, err
	}
	return Fill(sparse)
}

func values(rec domain.DailyRecord, kind domain.SeriesKind) (float64, *float64) {
	switch kind {
	case domain.SeriesROI:
		daily := 0.0
		if rec.ROI != nil {
			daily = *rec.ROI
		}
		return daily, rec.CumulativeROI
	case domain.SeriesTrades:
		return float64(rec.Trades), rec.CumulativeTrades
	default:
		return rec.Volume, rec.CumulativeVolume
	}
}
