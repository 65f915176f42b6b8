package domain

import (
	"github.com/shopspring/decimal"
)

// XRPCurrency is the native currency code.
const XRPCurrency = "XRP"

// Amount is a value in one currency. Issuer is nil for XRP.
type Amount struct {
	Value       decimal.Decimal
	Currency    string  // display name
	RawCurrency string  // ledger currency code
	Issuer      *string // issuing account for IOUs
}

// IsXRP reports whether the amount is denominated in XRP.
func (a *Amount) IsXRP() bool {
	return a != nil && a.RawCurrency == XRPCurrency && a.Issuer == nil
}

// SameAsset reports whether two amounts are in the same currency and issuer.
func (a *Amount) SameAsset(b *Amount) bool {
	if a == nil || b == nil {
		return false
	}
	if a.RawCurrency != b.RawCurrency {
		return false
	}
	if a.Issuer == nil || b.Issuer == nil {
		return a.Issuer == nil && b.Issuer == nil
	}
	return *a.Issuer == *b.Issuer
}

// NewXRPAmount creates an XRP amount.
func NewXRPAmount(v decimal.Decimal) *Amount {
	return &Amount{Value: v, Currency: XRPCurrency, RawCurrency: XRPCurrency}
}
