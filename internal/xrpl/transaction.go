package xrpl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ResultSuccess is the engine result of an applied transaction.
const ResultSuccess = "tesSUCCESS"

// dropsPerXRP converts drops strings to XRP.
var dropsPerXRP = decimal.NewFromInt(1_000_000)

// ErrNoAmount is returned by ParseAmount for absent or null fields.
var ErrNoAmount = errors.New("amount not present")

// Transaction holds the transaction fields used for activity normalization.
// Amount-like fields stay raw because they are either a drops string or an
// issued currency object.
type Transaction struct {
	Account          string          `json:"Account"`
	TransactionType  string          `json:"TransactionType"`
	Destination      string          `json:"Destination,omitempty"`
	Owner            string          `json:"Owner,omitempty"`
	Fee              string          `json:"Fee,omitempty"`
	Flags            uint32          `json:"Flags,omitempty"`
	Sequence         uint32          `json:"Sequence,omitempty"`
	SourceTag        *uint32         `json:"SourceTag,omitempty"`
	DestinationTag   *uint32         `json:"DestinationTag,omitempty"`
	Hash             string          `json:"hash,omitempty"`
	Date             *int64          `json:"date,omitempty"`
	LedgerIndex      int64           `json:"ledger_index,omitempty"`
	Amount           json.RawMessage `json:"Amount,omitempty"`
	Amount2          json.RawMessage `json:"Amount2,omitempty"`
	Asset            json.RawMessage `json:"Asset,omitempty"`
	Asset2           json.RawMessage `json:"Asset2,omitempty"`
	DeliverMax       json.RawMessage `json:"DeliverMax,omitempty"`
	SendMax          json.RawMessage `json:"SendMax,omitempty"`
	DeliverMin       json.RawMessage `json:"DeliverMin,omitempty"`
	TakerPays        json.RawMessage `json:"TakerPays,omitempty"`
	TakerGets        json.RawMessage `json:"TakerGets,omitempty"`
	LimitAmount      json.RawMessage `json:"LimitAmount,omitempty"`
	NFTokenID        string          `json:"NFTokenID,omitempty"`
	NFTokenSellOffer string          `json:"NFTokenSellOffer,omitempty"`
	NFTokenBuyOffer  string          `json:"NFTokenBuyOffer,omitempty"`
}

// UnmarshalJSON decodes field by field. A field of the wrong type is left
// at its zero value; only a body that is not a JSON object is an error.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m == nil {
		return errors.New("transaction is null")
	}

	*t = Transaction{
		Account:          rawString(m["Account"]),
		TransactionType:  rawString(m["TransactionType"]),
		Destination:      rawString(m["Destination"]),
		Owner:            rawString(m["Owner"]),
		Fee:              rawString(m["Fee"]),
		Hash:             rawString(m["hash"]),
		NFTokenID:        rawString(m["NFTokenID"]),
		NFTokenSellOffer: rawString(m["NFTokenSellOffer"]),
		NFTokenBuyOffer:  rawString(m["NFTokenBuyOffer"]),
		Amount:           m["Amount"],
		Amount2:          m["Amount2"],
		Asset:            m["Asset"],
		Asset2:           m["Asset2"],
		DeliverMax:       m["DeliverMax"],
		SendMax:          m["SendMax"],
		DeliverMin:       m["DeliverMin"],
		TakerPays:        m["TakerPays"],
		TakerGets:        m["TakerGets"],
		LimitAmount:      m["LimitAmount"],
	}
	if v, ok := rawUint(m["Flags"], 32); ok {
		t.Flags = uint32(v)
	}
	if v, ok := rawUint(m["Sequence"], 32); ok {
		t.Sequence = uint32(v)
	}
	if v, ok := rawUint(m["SourceTag"], 32); ok {
		tag := uint32(v)
		t.SourceTag = &tag
	}
	if v, ok := rawUint(m["DestinationTag"], 32); ok {
		tag := uint32(v)
		t.DestinationTag = &tag
	}
	if v, ok := rawInt(m["date"]); ok {
		t.Date = &v
	}
	if v, ok := rawInt(m["ledger_index"]); ok {
		t.LedgerIndex = v
	}
	return nil
}

// Meta is the transaction metadata subset used for normalization.
type Meta struct {
	TransactionResult string          `json:"TransactionResult"`
	TransactionIndex  int             `json:"TransactionIndex"`
	DeliveredAmount   json.RawMessage `json:"delivered_amount,omitempty"`
	NFTokenID         string          `json:"nftoken_id,omitempty"`
	AffectedNodes     []AffectedNode  `json:"AffectedNodes,omitempty"`
}

// UnmarshalJSON decodes field by field like Transaction. Affected nodes are
// dropped individually when they do not decode.
func (m *Meta) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*m = Meta{
		TransactionResult: rawString(fields["TransactionResult"]),
		DeliveredAmount:   fields["delivered_amount"],
		NFTokenID:         rawString(fields["nftoken_id"]),
	}
	if v, ok := rawInt(fields["TransactionIndex"]); ok {
		m.TransactionIndex = int(v)
	}

	var nodes []json.RawMessage
	if err := json.Unmarshal(fields["AffectedNodes"], &nodes); err != nil {
		return nil
	}
	for _, raw := range nodes {
		var n AffectedNode
		if err := json.Unmarshal(raw, &n); err == nil {
			m.AffectedNodes = append(m.AffectedNodes, n)
		}
	}
	return nil
}

// AffectedNode wraps exactly one of the three node kinds.
type AffectedNode struct {
	CreatedNode  *LedgerNode `json:"CreatedNode,omitempty"`
	ModifiedNode *LedgerNode `json:"ModifiedNode,omitempty"`
	DeletedNode  *LedgerNode `json:"DeletedNode,omitempty"`
}

// LedgerNode is a ledger object touched by a transaction.
type LedgerNode struct {
	LedgerEntryType string          `json:"LedgerEntryType"`
	LedgerIndex     string          `json:"LedgerIndex"`
	FinalFields     json.RawMessage `json:"FinalFields,omitempty"`
	PreviousFields  json.RawMessage `json:"PreviousFields,omitempty"`
	NewFields       json.RawMessage `json:"NewFields,omitempty"`
}

// Fields returns FinalFields, falling back to NewFields for created nodes.
func (n *LedgerNode) Fields() json.RawMessage {
	if len(n.FinalFields) > 0 {
		return n.FinalFields
	}
	return n.NewFields
}

// DeletedNodes returns deleted nodes of the given ledger entry type.
func (m *Meta) DeletedNodes(entryType string) []*LedgerNode {
	if m == nil {
		return nil
	}
	var out []*LedgerNode
	for _, n := range m.AffectedNodes {
		if n.DeletedNode != nil && n.DeletedNode.LedgerEntryType == entryType {
			out = append(out, n.DeletedNode)
		}
	}
	return out
}

// Entry is an account_tx entry with its transaction and metadata decoded.
type Entry struct {
	Tx          Transaction
	Meta        *Meta
	Hash        string
	LedgerIndex int64
	// Timestamp is zero when neither date nor close_time_iso is present.
	Timestamp time.Time
	Validated bool
}

// Result returns the engine result, or empty when metadata is missing.
func (e *Entry) Result() string {
	if e.Meta == nil {
		return ""
	}
	return e.Meta.TransactionResult
}

// Succeeded reports whether the transaction applied successfully.
func (e *Entry) Succeeded() bool {
	return e.Result() == ResultSuccess
}

// ParseEntry decodes an account_tx entry in either API v1 or v2 shape.
// Binary metadata is ignored; an undecodable transaction body is an error.
func ParseEntry(raw AccountTransaction) (*Entry, error) {
	body := raw.TxJSON
	if len(body) == 0 {
		body = raw.Tx
	}
	if len(body) == 0 || isNull(body) {
		return nil, errors.New("entry has no transaction")
	}

	e := &Entry{Validated: raw.Validated}
	if err := json.Unmarshal(body, &e.Tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	if len(raw.Meta) > 0 && raw.Meta[0] == '{' {
		var meta Meta
		if err := json.Unmarshal(raw.Meta, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
		e.Meta = &meta
	}

	e.Hash = raw.Hash
	if e.Hash == "" {
		e.Hash = e.Tx.Hash
	}

	e.LedgerIndex = raw.LedgerIndex
	if e.LedgerIndex == 0 {
		e.LedgerIndex = e.Tx.LedgerIndex
	}

	switch {
	case e.Tx.Date != nil:
		e.Timestamp = FromRippleTime(*e.Tx.Date)
	case raw.CloseTimeISO != "":
		ts, err := time.Parse(time.RFC3339, raw.CloseTimeISO)
		if err == nil {
			e.Timestamp = ts.UTC()
		}
	}

	return e, nil
}

// Amount is a parsed XRPL amount. XRP amounts are converted from drops.
// Currency holds the raw code, which may be a 40 hex character string.
type Amount struct {
	Value    decimal.Decimal
	Currency string
	Issuer   string
	XRP      bool
}

type issuedAmount struct {
	Currency string          `json:"currency"`
	Issuer   string          `json:"issuer,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// ParseAmount parses a drops string, an issued currency object, or an AMM
// asset descriptor (which carries no value and parses as zero).
func ParseAmount(raw json.RawMessage) (*Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil, ErrNoAmount
	}

	switch raw[0] {
	case '"':
		var drops string
		if err := json.Unmarshal(raw, &drops); err != nil {
			return nil, fmt.Errorf("unmarshal drops: %w", err)
		}
		d, err := decimal.NewFromString(drops)
		if err != nil {
			return nil, fmt.Errorf("parse drops %q: %w", drops, err)
		}
		return &Amount{Value: d.Div(dropsPerXRP), Currency: "XRP", XRP: true}, nil

	case '{':
		var ia issuedAmount
		if err := json.Unmarshal(raw, &ia); err != nil {
			return nil, fmt.Errorf("unmarshal issued amount: %w", err)
		}
		if ia.Currency == "" {
			return nil, errors.New("issued amount without currency")
		}
		value := decimal.Zero
		if len(ia.Value) > 0 && !isNull(ia.Value) {
			s := strings.Trim(string(ia.Value), `"`)
			v, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("parse value %q: %w", s, err)
			}
			value = v
		}
		xrp := ia.Currency == "XRP" && ia.Issuer == ""
		return &Amount{Value: value, Currency: ia.Currency, Issuer: ia.Issuer, XRP: xrp}, nil
	}

	return nil, fmt.Errorf("unsupported amount encoding %q", string(raw))
}

// FieldString extracts a string field from a raw ledger object.
func FieldString(fields json.RawMessage, name string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(m[name], &s); err != nil {
		return ""
	}
	return s
}

// FieldRaw extracts a raw field from a raw ledger object.
func FieldRaw(fields json.RawMessage, name string) json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil
	}
	return m[name]
}

// rawString returns a JSON string value, or "" for anything else.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// rawInt accepts a JSON integer or a decimal string holding one.
func rawInt(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// rawUint is rawInt for unsigned fields of the given bit size.
func rawUint(raw json.RawMessage, bits int) (uint64, bool) {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, bits)
	return v, err == nil
}

func isNull(b json.RawMessage) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
