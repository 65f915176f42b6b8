package domain

// TransactionKind is the ledger transaction type of an activity.
type TransactionKind string

const (
	KindPayment            TransactionKind = "Payment"
	KindOfferCreate        TransactionKind = "OfferCreate"
	KindOfferCancel        TransactionKind = "OfferCancel"
	KindTrustSet           TransactionKind = "TrustSet"
	KindAMMDeposit         TransactionKind = "AMMDeposit"
	KindAMMWithdraw        TransactionKind = "AMMWithdraw"
	KindNFTokenMint        TransactionKind = "NFTokenMint"
	KindNFTokenAcceptOffer TransactionKind = "NFTokenAcceptOffer"
	KindNFTokenBurn        TransactionKind = "NFTokenBurn"
	KindCheckCreate        TransactionKind = "CheckCreate"
	KindCheckCash          TransactionKind = "CheckCash"
	KindEscrowCreate       TransactionKind = "EscrowCreate"
	KindEscrowFinish       TransactionKind = "EscrowFinish"
	KindAccountSet         TransactionKind = "AccountSet"
	KindUnknown            TransactionKind = "Unknown"
)

var knownKinds = map[TransactionKind]struct{}{
	KindPayment:            {},
	KindOfferCreate:        {},
	KindOfferCancel:        {},
	KindTrustSet:           {},
	KindAMMDeposit:         {},
	KindAMMWithdraw:        {},
	KindNFTokenMint:        {},
	KindNFTokenAcceptOffer: {},
	KindNFTokenBurn:        {},
	KindCheckCreate:        {},
	KindCheckCash:          {},
	KindEscrowCreate:       {},
	KindEscrowFinish:       {},
	KindAccountSet:         {},
}

// ParseTransactionKind maps a ledger TransactionType to a kind.
// Unsupported types map to KindUnknown.
func ParseTransactionKind(s string) TransactionKind {
	k := TransactionKind(s)
	if _, ok := knownKinds[k]; ok {
		return k
	}
	return KindUnknown
}

// String returns the string representation of TransactionKind.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the supported values, including Unknown.
func (k TransactionKind) IsValid() bool {
	if k == KindUnknown {
		return true
	}
	_, ok := knownKinds[k]
	return ok
}

// IsNFT reports whether the kind operates on NFTokens.
func (k TransactionKind) IsNFT() bool {
	return k == KindNFTokenMint || k == KindNFTokenAcceptOffer || k == KindNFTokenBurn
}

// IsAMM reports whether the kind is an AMM pool operation.
func (k TransactionKind) IsAMM() bool {
	return k == KindAMMDeposit || k == KindAMMWithdraw
}
