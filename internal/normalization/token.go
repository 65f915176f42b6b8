package normalization

import (
	"strings"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/nfttrades"
	"xrpl-activity-lab/internal/tokenhistory"
	"xrpl-activity-lab/internal/xrpl"
)

// tokenTypeKinds maps token-history record types to transaction kinds.
var tokenTypeKinds = map[string]domain.TransactionKind{
	"swap":         domain.KindOfferCreate,
	"amm_deposit":  domain.KindAMMDeposit,
	"amm_withdraw": domain.KindAMMWithdraw,
}

// NormalizeTokenTrade normalizes one token-history record.
func (n *Normalizer) NormalizeTokenTrade(rec *tokenhistory.Record, account string) (*domain.NormalizedActivity, error) {
	if rec == nil {
		return nil, malformed("nil record")
	}
	ts, _ := rec.Time()

	kind := domain.KindUnknown
	if rec.TransactionType != "" {
		kind = domain.ParseTransactionKind(rec.TransactionType)
	} else if k, ok := tokenTypeKinds[strings.ToLower(rec.Type)]; ok {
		kind = k
	}

	a, err := newActivity(rec.Hash, ts, kind, domain.SourceTokenHistory)
	if err != nil {
		return nil, err
	}
	a.Result = rec.Result
	a.Sender = rec.Account
	a.LedgerIndex = rec.LedgerIndex
	a.Primary = n.assetAmount(rec.Base)
	a.Secondary = n.assetAmount(rec.Quote)
	if rec.Counterparty != account {
		a.Counterparty = strPtr(rec.Counterparty)
	}

	switch strings.ToLower(rec.Side) {
	case "buy":
		a.Direction = domain.DirectionIn
		a.Side = domain.SideBuy
	case "sell":
		a.Direction = domain.DirectionOut
		a.Side = domain.SideSell
	default:
		a.Direction = domain.DirectionOut
		if kind == domain.KindAMMWithdraw {
			a.Direction = domain.DirectionIn
		}
		if kind == domain.KindOfferCreate {
			a.Side = domain.SideTrade
		}
	}

	if a.Result != "" && a.Result != xrpl.ResultSuccess {
		a.Direction = domain.DirectionFailed
	}
	return n.finish(a, rec.SourceTag), nil
}

func (n *Normalizer) assetAmount(asset *tokenhistory.Asset) *domain.Amount {
	if asset == nil || asset.Currency == "" {
		return nil
	}
	v, ok := asset.Decimal()
	if !ok {
		return nil
	}
	return n.toAmount(v, asset.Currency, asset.Issuer)
}

// NormalizeNFTTrade normalizes one NFT sale.
func (n *Normalizer) NormalizeNFTTrade(t *nfttrades.Trade, account string) (*domain.NormalizedActivity, error) {
	if t == nil {
		return nil, malformed("nil trade")
	}
	ts, _ := tokenhistory.ParseTimestamp(t.Timestamp)

	a, err := newActivity(t.Hash, ts, domain.KindNFTokenAcceptOffer, domain.SourceNFTTrades)
	if err != nil {
		return nil, err
	}
	a.LedgerIndex = t.Ledger
	a.NFTokenID = strPtr(t.NFTokenID)

	code := t.Currency
	if code == "" {
		code = domain.XRPCurrency
	}
	a.Primary = n.assetAmount(&tokenhistory.Asset{Currency: code, Issuer: t.Issuer, Value: t.Amount})

	switch account {
	case t.Buyer:
		a.Direction = domain.DirectionIn
		a.Side = domain.SideBuy
		a.Counterparty = strPtr(t.Seller)
	case t.Seller:
		a.Direction = domain.DirectionOut
		a.Side = domain.SideSell
		a.Counterparty = strPtr(t.Buyer)
	default:
		a.Direction = domain.DirectionOut
		a.Counterparty = strPtr(t.Buyer)
	}
	return n.finish(a, nil), nil
}
