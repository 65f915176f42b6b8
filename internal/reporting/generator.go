package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"xrpl-activity-lab/internal/aggregator"
	"xrpl-activity-lab/internal/domain"
)

// DefaultActivityRows is the number of recent activities in a report.
const DefaultActivityRows = 25

// Source is the read side of an account aggregator.
type Source interface {
	Snapshot() *aggregator.Snapshot
	Summary(window domain.Window) (*domain.MetricsSummary, error)
	Series(kind domain.SeriesKind) ([]domain.DailySeriesPoint, error)
}

// Compile-time interface check.
var _ Source = (*aggregator.Aggregator)(nil)

// Generator produces reports from the current account snapshot.
type Generator struct {
	source       Source
	activityRows int
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source:       source,
		activityRows: DefaultActivityRows,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithActivityRows sets how many recent activities are listed.
func (g *Generator) WithActivityRows(n int) *Generator {
	g.activityRows = n
	return g
}

// Generate produces a report for window. A failing series is recorded in
// its section and does not fail the report.
func (g *Generator) Generate(window domain.Window) (*Report, error) {
	snap := g.source.Snapshot()

	summary, err := g.source.Summary(window)
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", window, err)
	}

	windows, err := g.generateWindows()
	if err != nil {
		return nil, err
	}

	activity := snap.Feed
	if g.activityRows >= 0 && len(activity) > g.activityRows {
		activity = activity[:g.activityRows]
	}

	return &Report{
		GeneratedAt: g.now(),
		Account:     snap.Account,
		Window:      window,
		Sources:     generateSources(snap.Statuses),
		Feed:        generateFeedSummary(snap.Feed),
		Summary:     summary,
		Windows:     windows,
		Activity:    activity,
		Series:      g.generateSeries(),
	}, nil
}

func generateSources(states []domain.CursorState) []SourceRow {
	rows := make([]SourceRow, 0, len(states))
	for _, s := range states {
		rows = append(rows, SourceRow{
			Source:    s.Source,
			Status:    s.Status,
			Fetched:   s.Fetched,
			Exhausted: s.Exhausted,
			Error:     s.LastError,
		})
	}
	return rows
}

// generateFeedSummary counts the feed. The feed is newest first.
func generateFeedSummary(feed []*domain.NormalizedActivity) FeedSummary {
	fs := FeedSummary{Total: len(feed)}
	if len(feed) == 0 {
		return fs
	}
	fs.Latest = feed[0].Timestamp
	fs.Earliest = feed[len(feed)-1].Timestamp

	counts := make(map[domain.TransactionKind]int)
	for _, a := range feed {
		counts[a.Kind]++
		if a.Direction == domain.DirectionFailed {
			fs.Failed++
		}
		if a.IsDust {
			fs.Dust++
		}
	}
	for kind, n := range counts {
		fs.ByKind = append(fs.ByKind, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(fs.ByKind, func(i, j int) bool {
		return fs.ByKind[i].Kind < fs.ByKind[j].Kind
	})
	return fs
}

func (g *Generator) generateWindows() ([]WindowRow, error) {
	rows := make([]WindowRow, 0, len(domain.Windows))
	for _, w := range domain.Windows {
		sum, err := g.source.Summary(w)
		if err != nil {
			return nil, fmt.Errorf("summary %s: %w", w, err)
		}
		wm := sum.WindowMetrics
		if wm == nil {
			continue
		}
		rows = append(rows, WindowRow{
			Window: w,
			Origin: wm.Origin,
			Volume: wm.Volume,
			Trades: wm.Trades,
			Profit: wm.Profit,
			ROI:    wm.ROI,
		})
	}
	return rows, nil
}

func (g *Generator) generateSeries() []SeriesSection {
	sections := make([]SeriesSection, 0, len(domain.SeriesKinds))
	for _, kind := range domain.SeriesKinds {
		points, err := g.source.Series(kind)
		section := SeriesSection{Kind: kind, Points: points}
		if err != nil {
			section.Points = nil
			section.Err = err.Error()
		}
		sections = append(sections, section)
	}
	return sections
}

// WriteFiles writes report.md, activity.csv and one series_<kind>.csv per
// built series into dir. feed is the full feed for activity.csv.
func WriteFiles(dir string, r *Report, feed []*domain.NormalizedActivity) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	reportPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(reportPath, []byte(RenderMarkdown(r)), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	activityPath := filepath.Join(dir, "activity.csv")
	if err := os.WriteFile(activityPath, []byte(RenderActivityCSV(feed)), 0644); err != nil {
		return fmt.Errorf("write activity csv: %w", err)
	}

	for _, s := range r.Series {
		if s.Err != "" {
			continue
		}
		seriesPath := filepath.Join(dir, fmt.Sprintf("series_%s.csv", s.Kind))
		if err := os.WriteFile(seriesPath, []byte(RenderSeriesCSV(s.Points)), 0644); err != nil {
			return fmt.Errorf("write %s series csv: %w", s.Kind, err)
		}
	}
	return nil
}
