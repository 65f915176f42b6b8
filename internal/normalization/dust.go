package normalization

import (
	"github.com/shopspring/decimal"

	"xrpl-activity-lab/internal/domain"
)

// DefaultDustThresholdXRP is the default dust threshold.
var DefaultDustThresholdXRP = decimal.New(1, -3)

// PriceOracle converts an issued amount to its XRP value.
type PriceOracle interface {
	XRPValue(a *domain.Amount) (decimal.Decimal, bool)
}

// DustPolicy flags activities whose value is below a threshold. Built once
// per normalizer.
type DustPolicy struct {
	ThresholdXRP decimal.Decimal
	Oracle       PriceOracle // optional
}

// DefaultDustPolicy returns the 0.001 XRP policy without an oracle.
func DefaultDustPolicy() DustPolicy {
	return DustPolicy{ThresholdXRP: DefaultDustThresholdXRP}
}

// IsDust reports whether the activity moves a positive value below the
// threshold. The XRP leg is preferred, then the oracle, then the raw primary
// value. Activities without a primary amount, zero-valued ones and trust
// line changes are never dust.
func (p DustPolicy) IsDust(a *domain.NormalizedActivity) bool {
	if a == nil || a.Primary == nil || a.Kind == domain.KindTrustSet {
		return false
	}

	var ref decimal.Decimal
	switch leg := a.XRPLeg(); {
	case leg != nil:
		ref = leg.Value
	case p.Oracle != nil:
		v, ok := p.Oracle.XRPValue(a.Primary)
		if !ok {
			ref = a.Primary.Value
		} else {
			ref = v
		}
	default:
		ref = a.Primary.Value
	}

	ref = ref.Abs()
	return ref.IsPositive() && ref.LessThan(p.ThresholdXRP)
}

// StaticOracle prices issued currencies by a fixed XRP rate per currency code.
type StaticOracle map[string]decimal.Decimal

// XRPValue implements PriceOracle.
func (o StaticOracle) XRPValue(a *domain.Amount) (decimal.Decimal, bool) {
	if a == nil {
		return decimal.Zero, false
	}
	rate, ok := o[a.RawCurrency]
	if !ok {
		return decimal.Zero, false
	}
	return a.Value.Mul(rate), true
}
