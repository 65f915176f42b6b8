package normalization

import (
	"encoding/json"
	"strconv"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/xrpl"
)

// lsfSellNFToken marks an NFTokenOffer as a sell offer.
const lsfSellNFToken = 0x00000001

// NormalizeLedger normalizes one account_tx entry from account's viewpoint.
func (n *Normalizer) NormalizeLedger(raw *xrpl.AccountTransaction, account string) (*domain.NormalizedActivity, error) {
	if raw == nil {
		return nil, malformed("nil entry")
	}
	e, err := xrpl.ParseEntry(*raw)
	if err != nil {
		return nil, malformed(err.Error())
	}
	return n.NormalizeEntry(e, account)
}

// NormalizeEntry normalizes an already decoded ledger entry.
func (n *Normalizer) NormalizeEntry(e *xrpl.Entry, account string) (*domain.NormalizedActivity, error) {
	tx := &e.Tx
	a, err := newActivity(e.Hash, e.Timestamp, domain.ParseTransactionKind(tx.TransactionType), domain.SourceLedger)
	if err != nil {
		return nil, err
	}
	a.Result = e.Result()
	a.LedgerIndex = e.LedgerIndex
	a.Sender = tx.Account
	if tx.Fee != "" && tx.Account == account {
		a.Fee = n.ledgerAmount(json.RawMessage(strconv.Quote(tx.Fee)))
	}

	switch a.Kind {
	case domain.KindPayment:
		n.payment(a, e, account)
	case domain.KindOfferCreate:
		n.offerCreate(a, tx, account)
	case domain.KindTrustSet:
		a.Direction = ownDirection(tx, account)
		a.Primary = n.ledgerAmount(tx.LimitAmount)
		if a.Primary != nil && a.Primary.Issuer != nil {
			a.Counterparty = strPtr(*a.Primary.Issuer)
		}
	case domain.KindAMMDeposit, domain.KindAMMWithdraw:
		a.Direction = domain.DirectionOut
		if a.Kind == domain.KindAMMWithdraw {
			a.Direction = domain.DirectionIn
		}
		a.Primary = n.firstAmount(tx.Amount, tx.Asset)
		a.Secondary = n.firstAmount(tx.Amount2, tx.Asset2)
	case domain.KindNFTokenMint:
		a.Direction = domain.DirectionIn
		a.Primary = n.ledgerAmount(tx.Amount)
		if e.Meta != nil {
			a.NFTokenID = strPtr(e.Meta.NFTokenID)
		}
	case domain.KindNFTokenBurn:
		a.Direction = domain.DirectionOut
		a.NFTokenID = strPtr(tx.NFTokenID)
	case domain.KindNFTokenAcceptOffer:
		n.nftAccept(a, e, account)
	case domain.KindCheckCreate:
		n.transfer(a, tx.Account, tx.Destination, account)
		a.Primary = n.ledgerAmount(tx.SendMax)
	case domain.KindEscrowCreate:
		n.transfer(a, tx.Account, tx.Destination, account)
		a.Primary = n.ledgerAmount(tx.Amount)
	case domain.KindCheckCash:
		n.checkCash(a, e, account)
	case domain.KindEscrowFinish:
		n.escrowFinish(a, e, account)
	case domain.KindOfferCancel, domain.KindAccountSet:
		a.Direction = ownDirection(tx, account)
	default:
		a.Direction = ownDirection(tx, account)
		a.Primary = n.firstAmount(tx.Amount, tx.DeliverMax)
		if tx.Destination != "" && tx.Destination != account {
			a.Counterparty = strPtr(tx.Destination)
		} else if tx.Account != account {
			a.Counterparty = strPtr(tx.Account)
		}
	}

	if !e.Succeeded() {
		a.Direction = domain.DirectionFailed
	}
	return n.finish(a, tx.SourceTag), nil
}

// ownDirection is out for the account's own transactions and in otherwise.
func ownDirection(tx *xrpl.Transaction, account string) domain.Direction {
	if tx.Account == account {
		return domain.DirectionOut
	}
	return domain.DirectionIn
}

// transfer sets direction and counterparty of a sender to receiver flow.
func (n *Normalizer) transfer(a *domain.NormalizedActivity, from, to, account string) {
	switch {
	case to == account && from != account:
		a.Direction = domain.DirectionIn
		a.Counterparty = strPtr(from)
	case from == account:
		a.Direction = domain.DirectionOut
		if to != account {
			a.Counterparty = strPtr(to)
		}
	default:
		a.Direction = domain.DirectionIn
		a.Counterparty = strPtr(from)
	}
}

func (n *Normalizer) payment(a *domain.NormalizedActivity, e *xrpl.Entry, account string) {
	tx := &e.Tx
	var delivered json.RawMessage
	if e.Meta != nil {
		delivered = e.Meta.DeliveredAmount
	}
	a.Primary = n.firstAmount(delivered, tx.DeliverMax, tx.Amount)

	if sendMax := n.ledgerAmount(tx.SendMax); sendMax != nil && !sendMax.SameAsset(a.Primary) {
		a.Secondary = sendMax
	}

	if tx.Account == account && tx.Destination == account {
		a.Direction = domain.DirectionOut
		if a.Secondary != nil {
			a.Side = domain.SideTrade
		}
		return
	}
	n.transfer(a, tx.Account, tx.Destination, account)
}

func (n *Normalizer) offerCreate(a *domain.NormalizedActivity, tx *xrpl.Transaction, account string) {
	a.Primary = n.ledgerAmount(tx.TakerPays)
	a.Secondary = n.ledgerAmount(tx.TakerGets)

	switch {
	case a.Secondary.IsXRP():
		a.Side = domain.SideBuy
	case a.Primary.IsXRP():
		a.Side = domain.SideSell
	default:
		a.Side = domain.SideTrade
	}

	a.Direction = ownDirection(tx, account)
	if tx.Account != account {
		a.Counterparty = strPtr(tx.Account)
	}
}

// nftAccept resolves buyer and seller from the consumed offers.
func (n *Normalizer) nftAccept(a *domain.NormalizedActivity, e *xrpl.Entry, account string) {
	tx := &e.Tx
	var seller, buyer string
	var sellAmount, buyAmount json.RawMessage
	var tokenID string

	for _, node := range e.Meta.DeletedNodes("NFTokenOffer") {
		fields := node.Fields()
		var flags struct {
			Flags uint32 `json:"Flags"`
		}
		_ = json.Unmarshal(fields, &flags)
		if tokenID == "" {
			tokenID = xrpl.FieldString(fields, "NFTokenID")
		}
		if flags.Flags&lsfSellNFToken != 0 {
			seller = xrpl.FieldString(fields, "Owner")
			sellAmount = xrpl.FieldRaw(fields, "Amount")
		} else {
			buyer = xrpl.FieldString(fields, "Owner")
			buyAmount = xrpl.FieldRaw(fields, "Amount")
		}
	}

	// The accepting account is the missing side of a direct sale.
	if seller == "" {
		seller = tx.Account
	}
	if buyer == "" {
		buyer = tx.Account
	}

	a.Primary = n.firstAmount(buyAmount, sellAmount)
	if e.Meta != nil && e.Meta.NFTokenID != "" {
		tokenID = e.Meta.NFTokenID
	}
	a.NFTokenID = strPtr(tokenID)

	switch account {
	case buyer:
		a.Direction = domain.DirectionIn
		a.Side = domain.SideBuy
		if seller != account {
			a.Counterparty = strPtr(seller)
		}
	case seller:
		a.Direction = domain.DirectionOut
		a.Side = domain.SideSell
		a.Counterparty = strPtr(buyer)
	default:
		// Broker: neither side of the token transfer.
		a.Direction = domain.DirectionOut
		a.Counterparty = strPtr(buyer)
	}
}

func (n *Normalizer) checkCash(a *domain.NormalizedActivity, e *xrpl.Entry, account string) {
	tx := &e.Tx
	var delivered json.RawMessage
	if e.Meta != nil {
		delivered = e.Meta.DeliveredAmount
	}
	a.Primary = n.firstAmount(delivered, tx.Amount, tx.DeliverMin)

	var creator string
	for _, node := range e.Meta.DeletedNodes("Check") {
		creator = xrpl.FieldString(node.Fields(), "Account")
	}

	if tx.Account == account {
		a.Direction = domain.DirectionIn
		a.Counterparty = strPtr(creator)
		return
	}
	a.Direction = domain.DirectionOut
	a.Counterparty = strPtr(tx.Account)
}

func (n *Normalizer) escrowFinish(a *domain.NormalizedActivity, e *xrpl.Entry, account string) {
	tx := &e.Tx
	owner, dest := tx.Owner, tx.Destination
	for _, node := range e.Meta.DeletedNodes("Escrow") {
		fields := node.Fields()
		a.Primary = n.ledgerAmount(xrpl.FieldRaw(fields, "Amount"))
		if v := xrpl.FieldString(fields, "Account"); v != "" {
			owner = v
		}
		if v := xrpl.FieldString(fields, "Destination"); v != "" {
			dest = v
		}
	}
	if a.Primary == nil {
		a.Primary = n.ledgerAmount(tx.Amount)
	}
	if dest == "" {
		dest = owner
	}
	n.transfer(a, owner, dest, account)
}
