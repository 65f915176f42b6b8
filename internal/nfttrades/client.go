// Package nfttrades is a client for the offset-paginated NFT trade API.
package nfttrades

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 10 * time.Second
	DefaultLimit      = 50

	tradesPath = "/trades"
)

// Trade is one NFT sale. Amount is in XRP unless Currency is set.
type Trade struct {
	Hash      string          `json:"hash"`
	NFTokenID string          `json:"nftokenId"`
	Timestamp json.RawMessage `json:"timestamp"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	Amount    json.RawMessage `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Issuer    string          `json:"issuer,omitempty"`
	Broker    string          `json:"broker,omitempty"`
	Ledger    int64           `json:"ledgerIndex,omitempty"`
}

// Page is one response of the trades endpoint.
type Page struct {
	Trades []Trade `json:"trades"`
}

// Client reads the NFT trade API.
type Client struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trades returns up to limit trades starting at offset.
func (c *Client) Trades(ctx context.Context, account string, offset, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("account", account)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := c.baseURL + tradesPath + "?" + q.Encode()
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var page Page
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return &page, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
