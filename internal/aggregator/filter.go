package aggregator

import (
	"strings"

	"xrpl-activity-lab/internal/domain"
)

// Filter selects activities of the merged feed. A zero Filter matches all.
type Filter struct {
	Kinds []domain.TransactionKind // allow-list, empty allows every kind
	Query string                   // case-insensitive substring
}

// IsZero reports whether the filter matches every activity.
func (f Filter) IsZero() bool {
	return len(f.Kinds) == 0 && strings.TrimSpace(f.Query) == ""
}

// Apply returns the matching activities in feed order.
func (f Filter) Apply(feed []*domain.NormalizedActivity) []*domain.NormalizedActivity {
	out := make([]*domain.NormalizedActivity, 0, len(feed))
	if f.IsZero() {
		return append(out, feed...)
	}

	kinds := make(map[domain.TransactionKind]bool, len(f.Kinds))
	for _, k := range f.Kinds {
		kinds[k] = true
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	for _, a := range feed {
		if len(kinds) > 0 && !kinds[a.Kind] {
			continue
		}
		if query != "" && !matchesQuery(a, query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// matchesQuery checks the hash, sender, counterparty, currencies, issuers,
// NFT id and source tag label against an already lower-cased query.
func matchesQuery(a *domain.NormalizedActivity, query string) bool {
	fields := []string{a.ID, a.Sender}
	if a.Counterparty != nil {
		fields = append(fields, *a.Counterparty)
	}
	if a.NFTokenID != nil {
		fields = append(fields, *a.NFTokenID)
	}
	if a.SourceTag != nil {
		fields = append(fields, a.SourceTag.Label)
	}
	for _, amt := range []*domain.Amount{a.Primary, a.Secondary} {
		if amt == nil {
			continue
		}
		fields = append(fields, amt.Currency, amt.RawCurrency)
		if amt.Issuer != nil {
			fields = append(fields, *amt.Issuer)
		}
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// ParseKinds parses a comma-separated kind list. Unknown names are ignored.
func ParseKinds(s string) []domain.TransactionKind {
	var kinds []domain.TransactionKind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k := domain.TransactionKind(part)
		if k.IsValid() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
