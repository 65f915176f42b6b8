package reporting

import (
	"time"

	"xrpl-activity-lab/internal/domain"
)

// Report is the account activity report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Account     string
	Window      domain.Window

	// Per-source pagination state
	Sources []SourceRow

	// Feed overview
	Feed FeedSummary

	// Metrics of the requested window
	Summary *domain.MetricsSummary

	// One row per bounded window (24h, 7d, 1m, 3m)
	Windows []WindowRow

	// Most recent activities, newest first
	Activity []*domain.NormalizedActivity

	// Daily series in domain.SeriesKinds order
	Series []SeriesSection
}

// SourceRow is one source cursor in the report.
type SourceRow struct {
	Source    domain.SourceID
	Status    domain.CursorStatus
	Fetched   int
	Exhausted bool
	Error     string
}

// FeedSummary describes the merged feed.
type FeedSummary struct {
	Total    int
	Failed   int
	Dust     int
	ByKind   []KindCount // sorted by kind
	Earliest time.Time   // zero for an empty feed
	Latest   time.Time
}

// KindCount is the number of activities of one transaction kind.
type KindCount struct {
	Kind  domain.TransactionKind
	Count int
}

// WindowRow is the windowed metrics of one window.
type WindowRow struct {
	Window domain.Window
	Origin domain.MetricsOrigin
	Volume float64
	Trades int
	Profit float64
	ROI    float64
}

// SeriesSection is one charted series. Err is set when the series could not
// be built; the other sections are unaffected.
type SeriesSection struct {
	Kind   domain.SeriesKind
	Points []domain.DailySeriesPoint
	Err    string
}
