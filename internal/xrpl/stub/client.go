package stub

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"xrpl-activity-lab/internal/xrpl"
)

// DefaultLimit is the page size used when a request carries none.
const DefaultLimit = 200

// Client implements xrpl.Client for testing. Markers are page offsets.
type Client struct {
	mu           sync.Mutex
	Transactions map[string][]xrpl.AccountTransaction
	// Err, when set, is returned by every call.
	Err error
	// Calls counts AccountTx invocations.
	Calls int
}

// NewClient creates a new stub client.
func NewClient() *Client {
	return &Client{Transactions: make(map[string][]xrpl.AccountTransaction)}
}

// Add appends transactions to an account's history.
func (c *Client) Add(account string, txs ...xrpl.AccountTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[account] = append(c.Transactions[account], txs...)
}

// AccountTx returns one page of the stored history.
func (c *Client) AccountTx(_ context.Context, req xrpl.AccountTxRequest) (*xrpl.AccountTxResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}

	offset := 0
	if xrpl.HasMarker(req.Marker) {
		n, err := strconv.Atoi(string(req.Marker))
		if err != nil {
			return nil, err
		}
		offset = n
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	all := c.Transactions[req.Account]
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]xrpl.AccountTransaction, end-offset)
	copy(page, all[offset:end])

	result := &xrpl.AccountTxResult{
		Account:      req.Account,
		Transactions: page,
		Limit:        limit,
		Validated:    true,
	}
	if end < len(all) {
		result.Marker = json.RawMessage(strconv.Itoa(end))
	}
	return result, nil
}
