package clickhouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/storage"
)

// DailySeriesStore implements storage.DailySeriesStore using ClickHouse.
//
// Each Replace writes the whole series under a new version. Reads return only
// the rows of the latest version, so days dropped by a later series vanish
// without a mutation.
type DailySeriesStore struct {
	conn *Conn

	mu          sync.Mutex
	lastVersion uint64
}

// NewDailySeriesStore creates a new DailySeriesStore.
func NewDailySeriesStore(conn *Conn) *DailySeriesStore {
	return &DailySeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailySeriesStore = (*DailySeriesStore)(nil)

// Replace stores points as the current series of (account, kind).
// An empty series deletes the stored one.
func (s *DailySeriesStore) Replace(ctx context.Context, account string, kind domain.SeriesKind, points []domain.DailySeriesPoint) (err error) {
	if account == "" || !kind.IsValid() {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "daily_series_replace", time.Since(start).Seconds(), err)
	}()

	if len(points) == 0 {
		syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{"mutations_sync": 1}))
		if err := s.conn.Exec(syncCtx, `ALTER TABLE daily_series DELETE WHERE account = ? AND kind = ?`, account, string(kind)); err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_series (
			account, kind, date, daily_value, cumulative_value, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	version := s.nextVersion()
	for _, p := range points {
		err = batch.Append(account, string(kind), p.Date, p.DailyValue, p.CumulativeValue, version)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Get retrieves the latest series of (account, kind), ordered by date ASC.
func (s *DailySeriesStore) Get(ctx context.Context, account string, kind domain.SeriesKind) ([]domain.DailySeriesPoint, error) {
	query := `
		SELECT date, daily_value, cumulative_value
		FROM daily_series FINAL
		WHERE account = ? AND kind = ? AND version = (
			SELECT max(version) FROM daily_series WHERE account = ? AND kind = ?
		)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, account, string(kind), account, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}
	defer rows.Close()

	return scanDailySeries(rows)
}

// nextVersion returns a strictly increasing version based on wall time.
func (s *DailySeriesStore) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := uint64(time.Now().UnixNano())
	if v <= s.lastVersion {
		v = s.lastVersion + 1
	}
	s.lastVersion = v
	return v
}

// scanDailySeries scans multiple rows.
func scanDailySeries(rows chRows) ([]domain.DailySeriesPoint, error) {
	points := []domain.DailySeriesPoint{}

	for rows.Next() {
		var p domain.DailySeriesPoint
		if err := rows.Scan(&p.Date, &p.DailyValue, &p.CumulativeValue); err != nil {
			return nil, fmt.Errorf("scan daily series row: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily series rows: %w", err)
	}

	return points, nil
}
