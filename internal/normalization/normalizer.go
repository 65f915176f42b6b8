// Package normalization turns ledger transactions, token-history records and
// NFT trades into domain.NormalizedActivity values.
package normalization

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/currency"
	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/xrpl"
)

// Options configures a Normalizer. Zero values use defaults.
type Options struct {
	Codec *currency.Codec
	Tags  *SourceTags
	Dust  *DustPolicy
}

// Normalizer builds NormalizedActivity values. Field-level damage never
// fails a record; only a record without id or timestamp is rejected.
// Safe for concurrent use.
type Normalizer struct {
	codec *currency.Codec
	tags  *SourceTags
	dust  DustPolicy
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	n := &Normalizer{
		codec: opts.Codec,
		tags:  opts.Tags,
		dust:  DefaultDustPolicy(),
	}
	if n.codec == nil {
		n.codec = currency.NewCodec(currency.DefaultCacheSize)
	}
	if n.tags == nil {
		n.tags = NewSourceTags(nil)
	}
	if opts.Dust != nil {
		n.dust = *opts.Dust
	}
	return n
}

// Codec returns the currency codec used for display names.
func (n *Normalizer) Codec() *currency.Codec {
	return n.codec
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedRecord, reason)
}

// newActivity validates the identity fields shared by every source.
func newActivity(id string, ts time.Time, kind domain.TransactionKind, source domain.SourceID) (*domain.NormalizedActivity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, malformed("missing hash")
	}
	if ts.IsZero() || ts.Unix() <= 0 {
		return nil, malformed("missing timestamp")
	}
	return &domain.NormalizedActivity{
		ID:        strings.ToUpper(strings.TrimSpace(id)),
		Timestamp: ts.UTC(),
		Kind:      kind,
		Source:    source,
	}, nil
}

// finish applies the rules common to every source once legs are known.
func (n *Normalizer) finish(a *domain.NormalizedActivity, tag *uint32) *domain.NormalizedActivity {
	if tag != nil {
		st := n.tags.Lookup(*tag)
		a.SourceTag = &st
	}
	a.IsDust = n.dust.IsDust(a)
	return a
}

// ledgerAmount converts a raw ledger amount, returning nil on any failure.
func (n *Normalizer) ledgerAmount(raw json.RawMessage) *domain.Amount {
	amt, err := xrpl.ParseAmount(raw)
	if err != nil {
		return nil
	}
	return n.toAmount(amt.Value, amt.Currency, amt.Issuer)
}

// firstAmount returns the first parsable amount of the candidates.
func (n *Normalizer) firstAmount(candidates ...json.RawMessage) *domain.Amount {
	for _, raw := range candidates {
		if a := n.ledgerAmount(raw); a != nil {
			return a
		}
	}
	return nil
}

func (n *Normalizer) toAmount(value decimal.Decimal, code, issuer string) *domain.Amount {
	if strings.EqualFold(code, domain.XRPCurrency) && issuer == "" {
		return domain.NewXRPAmount(value)
	}
	amt := &domain.Amount{
		Value:       value,
		Currency:    n.codec.Decode(code),
		RawCurrency: code,
	}
	if issuer != "" {
		iss := issuer
		amt.Issuer = &iss
	}
	return amt
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
