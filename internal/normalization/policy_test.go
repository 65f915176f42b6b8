package normalization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"xrpl-activity-lab/internal/domain"
)

func iou(value string) *domain.Amount {
	issuer := gate
	return &domain.Amount{Value: decimal.RequireFromString(value), Currency: "USD", RawCurrency: "USD", Issuer: &issuer}
}

func TestDustPolicy(t *testing.T) {
	p := DefaultDustPolicy()

	tests := []struct {
		name string
		a    *domain.NormalizedActivity
		want bool
	}{
		{"no amount", &domain.NormalizedActivity{Kind: domain.KindAccountSet}, false},
		{"tiny xrp", &domain.NormalizedActivity{Primary: domain.NewXRPAmount(decimal.RequireFromString("0.0009"))}, true},
		{"threshold xrp", &domain.NormalizedActivity{Primary: domain.NewXRPAmount(decimal.RequireFromString("0.001"))}, false},
		{"negative tiny", &domain.NormalizedActivity{Primary: domain.NewXRPAmount(decimal.RequireFromString("-0.0001"))}, true},
		{"xrp secondary leg wins", &domain.NormalizedActivity{
			Primary:   iou("0.00001"),
			Secondary: domain.NewXRPAmount(decimal.RequireFromString("50")),
		}, false},
		{"raw iou value", &domain.NormalizedActivity{Primary: iou("0.0005")}, true},
		{"trust line", &domain.NormalizedActivity{Kind: domain.KindTrustSet, Primary: iou("0.0005")}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.IsDust(tt.a), tt.name)
	}
}

func TestDustPolicy_Oracle(t *testing.T) {
	p := DustPolicy{
		ThresholdXRP: decimal.RequireFromString("1"),
		Oracle:       StaticOracle{"USD": decimal.RequireFromString("2")},
	}

	assert.False(t, p.IsDust(&domain.NormalizedActivity{Primary: iou("0.6")}), "0.6 USD is 1.2 XRP")
	assert.True(t, p.IsDust(&domain.NormalizedActivity{Primary: iou("0.4")}), "0.4 USD is 0.8 XRP")

	eur := &domain.Amount{Value: decimal.RequireFromString("0.5"), Currency: "EUR", RawCurrency: "EUR"}
	assert.True(t, p.IsDust(&domain.NormalizedActivity{Primary: eur}), "unpriced falls back to raw value")
}

func TestNormalizer_CustomDustPolicy(t *testing.T) {
	policy := DustPolicy{ThresholdXRP: decimal.RequireFromString("10")}
	n := New(Options{Dust: &policy})

	a := n.finish(&domain.NormalizedActivity{Primary: domain.NewXRPAmount(decimal.RequireFromString("5"))}, nil)
	assert.True(t, a.IsDust)
}

func TestSourceTags(t *testing.T) {
	tags := NewSourceTags(map[uint32]string{77: "Wallet", 270601: ""})

	assert.Equal(t, "Wallet", tags.Lookup(77).Label)
	assert.Equal(t, "", tags.Lookup(270601).Label, "empty label removes a default")
	assert.Equal(t, "12345", tags.Lookup(12345).String())
	assert.Equal(t, 1, tags.Len())

	defaults := NewSourceTags(nil)
	assert.Equal(t, "FirstLedger", defaults.Lookup(270601).String())

	var nilTags *SourceTags
	assert.Equal(t, uint32(9), nilTags.Lookup(9).Value)
}

func TestSortFeed(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feed := []*domain.NormalizedActivity{
		{ID: "B", Timestamp: base},
		{ID: "C", Timestamp: base.Add(time.Hour)},
		{ID: "A", Timestamp: base},
	}

	SortFeed(feed)

	assert.Equal(t, "C", feed[0].ID)
	assert.Equal(t, "A", feed[1].ID)
	assert.Equal(t, "B", feed[2].ID)
	assert.True(t, IsSorted(feed))

	feed = append(feed, &domain.NormalizedActivity{ID: "B", Timestamp: base})
	assert.False(t, IsSorted(feed))
}
