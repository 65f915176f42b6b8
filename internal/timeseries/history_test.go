package timeseries

import (
	"errors"
	"testing"

	"xrpl-activity-lab/internal/domain"
)

func f(v float64) *float64 { return &v }

func history() []domain.DailyRecord {
	return []domain.DailyRecord{
		{Date: d(1), Volume: 100, Trades: 2, ROI: f(5)},
		{Date: d(2), Volume: 50, Trades: 1},
		{Date: d(5), Volume: 25, Trades: 3, ROI: f(-2)},
	}
}

func TestFromHistory_RunningSums(t *testing.T) {
	tests := []struct {
		kind  domain.SeriesKind
		daily []float64
		cum   []float64
	}{
		{domain.SeriesVolume, []float64{100, 50, 25}, []float64{100, 150, 175}},
		{domain.SeriesTrades, []float64{2, 1, 3}, []float64{2, 3, 6}},
		{domain.SeriesROI, []float64{5, 0, -2}, []float64{5, 5, 3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			points, err := FromHistory(history(), tt.kind)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(points) != len(tt.daily) {
				t.Fatalf("expected %d points, got %d", len(tt.daily), len(points))
			}
			for i, p := range points {
				if p.DailyValue != tt.daily[i] || p.CumulativeValue != tt.cum[i] {
					t.Errorf("point %d: expected (%f, %f), got (%f, %f)", i, tt.daily[i], tt.cum[i], p.DailyValue, p.CumulativeValue)
				}
			}
		})
	}
}

func TestFromHistory_SuppliedCumulative(t *testing.T) {
	recs := []domain.DailyRecord{
		{Date: d(1), Volume: 10, CumulativeVolume: f(1000)},
		{Date: d(2), Volume: 5},
		{Date: d(3), Volume: 1, CumulativeVolume: f(2000)},
	}

	points, err := FromHistory(recs, domain.SeriesVolume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1000, 1005, 2000}
	for i, p := range points {
		if p.CumulativeValue != want[i] {
			t.Errorf("point %d: expected cumulative %f, got %f", i, want[i], p.CumulativeValue)
		}
	}
}

func TestFromHistory_InvalidKind(t *testing.T) {
	_, err := FromHistory(history(), domain.SeriesKind("pnl"))
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestBuild_Dense(t *testing.T) {
	series, err := Build(history(), domain.SeriesVolume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 5 {
		t.Fatalf("expected 5 days, got %d", len(series))
	}
	// Days 3 and 4 are filled.
	for _, i := range []int{2, 3} {
		if series[i].DailyValue != 0 || series[i].CumulativeValue != 150 {
			t.Errorf("day %d: expected (0, 150), got (%f, %f)", i+1, series[i].DailyValue, series[i].CumulativeValue)
		}
	}
}

func TestBuild_OrderingErrorIsolated(t *testing.T) {
	recs := []domain.DailyRecord{{Date: d(3)}, {Date: d(1)}}
	if _, err := Build(recs, domain.SeriesTrades); !errors.Is(err, domain.ErrOrdering) {
		t.Errorf("expected ErrOrdering, got %v", err)
	}
}
