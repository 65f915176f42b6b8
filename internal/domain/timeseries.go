package domain

import "time"

// SeriesKind identifies a charted daily series.
type SeriesKind string

const (
	SeriesROI    SeriesKind = "roi"
	SeriesTrades SeriesKind = "trades"
	SeriesVolume SeriesKind = "volume"
)

// SeriesKinds lists all charted series.
var SeriesKinds = []SeriesKind{SeriesROI, SeriesTrades, SeriesVolume}

// IsValid checks if the kind is a valid value.
func (k SeriesKind) IsValid() bool {
	return k == SeriesROI || k == SeriesTrades || k == SeriesVolume
}

// DailySeriesPoint is one day of a charted series.
type DailySeriesPoint struct {
	Date            time.Time // UTC midnight
	DailyValue      float64
	CumulativeValue float64
}
