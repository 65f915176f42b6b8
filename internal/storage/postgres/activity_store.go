package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/storage"
)

// ActivityStore implements storage.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *Pool
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(pool *Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

const activityColumns = `
	id, timestamp, direction, kind, sender, side, counterparty,
	primary_value::text, primary_currency, primary_raw_currency, primary_issuer,
	secondary_value::text, secondary_currency, secondary_raw_currency, secondary_issuer,
	source_tag, source_tag_label, is_dust, nftoken_id, source, result, ledger_index, fee::text
`

const insertActivity = `
	INSERT INTO activities (
		account, id, timestamp, direction, kind, sender, side, counterparty,
		primary_value, primary_currency, primary_raw_currency, primary_issuer,
		secondary_value, secondary_currency, secondary_raw_currency, secondary_issuer,
		source_tag, source_tag_label, is_dust, nftoken_id, source, result, ledger_index, fee
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9::numeric, $10, $11, $12,
		$13::numeric, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24::numeric
	)
`

// InsertBulk archives activities in one transaction. Existing (account, id)
// rows are left untouched.
func (s *ActivityStore) InsertBulk(ctx context.Context, account string, activities []*domain.NormalizedActivity) (n int, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "activities_insert", time.Since(start).Seconds(), err)
	}()
	return s.write(ctx, account, activities, insertActivity+`ON CONFLICT (account, id) DO NOTHING`)
}

// Upsert archives activities in one transaction, overwriting existing
// (account, id) rows.
func (s *ActivityStore) Upsert(ctx context.Context, account string, activities []*domain.NormalizedActivity) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "activities_upsert", time.Since(start).Seconds(), err)
	}()
	_, err = s.write(ctx, account, activities, insertActivity+`
	ON CONFLICT (account, id) DO UPDATE SET
		timestamp = EXCLUDED.timestamp,
		direction = EXCLUDED.direction,
		kind = EXCLUDED.kind,
		sender = EXCLUDED.sender,
		side = EXCLUDED.side,
		counterparty = EXCLUDED.counterparty,
		primary_value = EXCLUDED.primary_value,
		primary_currency = EXCLUDED.primary_currency,
		primary_raw_currency = EXCLUDED.primary_raw_currency,
		primary_issuer = EXCLUDED.primary_issuer,
		secondary_value = EXCLUDED.secondary_value,
		secondary_currency = EXCLUDED.secondary_currency,
		secondary_raw_currency = EXCLUDED.secondary_raw_currency,
		secondary_issuer = EXCLUDED.secondary_issuer,
		source_tag = EXCLUDED.source_tag,
		source_tag_label = EXCLUDED.source_tag_label,
		is_dust = EXCLUDED.is_dust,
		nftoken_id = EXCLUDED.nftoken_id,
		source = EXCLUDED.source,
		result = EXCLUDED.result,
		ledger_index = EXCLUDED.ledger_index,
		fee = EXCLUDED.fee`)
	return err
}

// write runs query once per activity in one transaction and returns the
// number of affected rows.
func (s *ActivityStore) write(ctx context.Context, account string, activities []*domain.NormalizedActivity, query string) (int, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(activities) == 0 {
		return 0, nil
	}
	for _, a := range activities {
		if a == nil || a.ID == "" {
			return 0, storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	affected := 0
	for _, a := range activities {
		pv, pc, prc, pi := amountColumns(a.Primary)
		sv, sc, src, si := amountColumns(a.Secondary)
		fee, _, _, _ := amountColumns(a.Fee)

		var tag *int64
		var tagLabel *string
		if a.SourceTag != nil {
			v := int64(a.SourceTag.Value)
			tag = &v
			if a.SourceTag.Label != "" {
				label := a.SourceTag.Label
				tagLabel = &label
			}
		}

		res, err := tx.Exec(ctx, query,
			account, a.ID, a.Timestamp, string(a.Direction), string(a.Kind), a.Sender, string(a.Side), a.Counterparty,
			pv, pc, prc, pi,
			sv, sc, src, si,
			tag, tagLabel, a.IsDust, a.NFTokenID, string(a.Source), a.Result, a.LedgerIndex, fee,
		)
		if err != nil {
			return 0, fmt.Errorf("write activity %s: %w", a.ID, err)
		}
		affected += int(res.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return affected, nil
}

// GetByID retrieves one archived activity.
func (s *ActivityStore) GetByID(ctx context.Context, account, id string) (*domain.NormalizedActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE account = $1 AND id = $2`

	a, err := scanActivity(s.pool.QueryRow(ctx, query, account, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get activity by id: %w", err)
	}
	return a, nil
}

// GetByAccount retrieves archived activities ordered by timestamp DESC, id ASC.
func (s *ActivityStore) GetByAccount(ctx context.Context, account string, limit int) ([]*domain.NormalizedActivity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE account = $1
		ORDER BY timestamp DESC, id ASC
	`
	args := []interface{}{account}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observability.RecordDBQuery("postgres", "activities_select", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get activities by account: %w", err)
	}
	defer rows.Close()

	var result []*domain.NormalizedActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return result, nil
}

// Count returns the number of archived activities for account.
func (s *ActivityStore) Count(ctx context.Context, account string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE account = $1`, account).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

func amountColumns(a *domain.Amount) (value, currency, raw, issuer *string) {
	if a == nil {
		return nil, nil, nil, nil
	}
	v := a.Value.String()
	c, r := a.Currency, a.RawCurrency
	return &v, &c, &r, a.Issuer
}

func amountFromColumns(value, currency, raw, issuer *string) (*domain.Amount, error) {
	if value == nil {
		return nil, nil
	}
	v, err := decimal.NewFromString(*value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", *value, err)
	}
	a := &domain.Amount{Value: v, Issuer: issuer}
	if currency != nil {
		a.Currency = *currency
	}
	if raw != nil {
		a.RawCurrency = *raw
	}
	return a, nil
}

func scanActivity(row pgx.Row) (*domain.NormalizedActivity, error) {
	var a domain.NormalizedActivity
	var direction, kind, side, source string
	var pv, pc, prc, pi, sv, sc, src, si, fee *string
	var tag *int64
	var tagLabel *string

	err := row.Scan(
		&a.ID, &a.Timestamp, &direction, &kind, &a.Sender, &side, &a.Counterparty,
		&pv, &pc, &prc, &pi,
		&sv, &sc, &src, &si,
		&tag, &tagLabel, &a.IsDust, &a.NFTokenID, &source, &a.Result, &a.LedgerIndex, &fee,
	)
	if err != nil {
		return nil, err
	}

	a.Timestamp = a.Timestamp.UTC()
	a.Direction = domain.Direction(direction)
	a.Kind = domain.TransactionKind(kind)
	a.Side = domain.Side(side)
	a.Source = domain.SourceID(source)

	if a.Primary, err = amountFromColumns(pv, pc, prc, pi); err != nil {
		return nil, err
	}
	if a.Secondary, err = amountFromColumns(sv, sc, src, si); err != nil {
		return nil, err
	}
	if fee != nil {
		v, err := decimal.NewFromString(*fee)
		if err != nil {
			return nil, fmt.Errorf("parse fee %q: %w", *fee, err)
		}
		a.Fee = domain.NewXRPAmount(v)
	}
	if tag != nil {
		a.SourceTag = &domain.SourceTag{Value: uint32(*tag)}
		if tagLabel != nil {
			a.SourceTag.Label = *tagLabel
		}
	}
	return &a, nil
}
