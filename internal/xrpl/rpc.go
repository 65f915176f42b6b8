// Package xrpl is a read-only XRP Ledger client for account history.
package xrpl

import (
	"context"
	"encoding/json"
)

// Client fetches account transaction history from a rippled server.
type Client interface {
	// AccountTx returns one page of account_tx. A non-nil Marker on the result
	// means more pages are available.
	AccountTx(ctx context.Context, req AccountTxRequest) (*AccountTxResult, error)
}

// AccountTxRequest holds account_tx parameters.
type AccountTxRequest struct {
	Account        string          `json:"account"`
	LedgerIndexMin int64           `json:"ledger_index_min"`
	LedgerIndexMax int64           `json:"ledger_index_max"`
	Limit          int             `json:"limit,omitempty"`
	Marker         json.RawMessage `json:"marker,omitempty"`
	Forward        bool            `json:"forward,omitempty"`
}

// NewAccountTxRequest returns a request spanning all validated ledgers.
func NewAccountTxRequest(account string, limit int, marker json.RawMessage) AccountTxRequest {
	return AccountTxRequest{
		Account:        account,
		LedgerIndexMin: -1,
		LedgerIndexMax: -1,
		Limit:          limit,
		Marker:         marker,
	}
}

// AccountTxResult is one page of account_tx.
type AccountTxResult struct {
	Account      string               `json:"account"`
	Transactions []AccountTransaction `json:"transactions"`
	Marker       json.RawMessage      `json:"marker,omitempty"`
	Limit        int                  `json:"limit"`
	Validated    bool                 `json:"validated"`
}

// HasMore reports whether the server returned a continuation marker.
func (r *AccountTxResult) HasMore() bool {
	return HasMarker(r.Marker)
}

// HasMarker reports whether m is a present, non-null marker.
func HasMarker(m json.RawMessage) bool {
	if len(m) == 0 {
		return false
	}
	return string(m) != "null"
}

// AccountTransaction is one raw entry of account_tx. API v1 servers put the
// transaction in Tx; API v2 servers use TxJSON plus top-level Hash and CloseTimeISO.
type AccountTransaction struct {
	Tx           json.RawMessage `json:"tx,omitempty"`
	TxJSON       json.RawMessage `json:"tx_json,omitempty"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	Hash         string          `json:"hash,omitempty"`
	LedgerIndex  int64           `json:"ledger_index,omitempty"`
	CloseTimeISO string          `json:"close_time_iso,omitempty"`
	Validated    bool            `json:"validated"`
}

// rpcError is a rippled error result.
type rpcError struct {
	Code    string `json:"error"`
	Number  int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *rpcError) Error() string {
	if e.Message != "" {
		return "rippled error " + e.Code + ": " + e.Message
	}
	return "rippled error " + e.Code
}

// retryable reports whether the server asked the client to back off.
func (e *rpcError) retryable() bool {
	return e.Code == "slowDown" || e.Code == "tooBusy" || e.Code == "noCurrent" || e.Code == "noNetwork"
}
