package tokenhistory

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
	DefaultLimit      = 100

	historyPath = "/history"
	statsPath   = "/trader-stats"

	// maxStatsPages bounds the trader-stats cursor walk.
	maxStatsPages = 50
)

// Client reads the token-trade history API.
type Client struct {
	baseURL    string
	client     *http.Client
	apiKey     string
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

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
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

// List returns one page of token trades.
func (c *Client) List(ctx context.Context, p ListParams) (*Page, error) {
	q := url.Values{}
	q.Set("account", p.Account)
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	if p.PairType != "" {
		q.Set("pairType", p.PairType)
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}

	var page Page
	if err := c.get(ctx, historyPath, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Stats returns one page of the trader-stats endpoint.
func (c *Client) Stats(ctx context.Context, account, cursor string) (*StatsPage, error) {
	q := url.Values{}
	q.Set("account", account)
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page StatsPage
	if err := c.get(ctx, statsPath, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// StatsAll walks every trader-stats page and concatenates the records.
// Windows, history and totals come from the first page that carries them.
func (c *Client) StatsAll(ctx context.Context, account string) (*StatsPage, error) {
	var all StatsPage
	cursor := ""
	for i := 0; i < maxStatsPages; i++ {
		page, err := c.Stats(ctx, account, cursor)
		if err != nil {
			return nil, err
		}
		all.Data = append(all.Data, page.Data...)
		if all.Windows == nil && len(page.Windows) > 0 {
			all.Windows = page.Windows
		}
		if all.History == nil && len(page.History) > 0 {
			all.History = page.History
		}
		if all.Totals == nil && page.Totals != nil {
			all.Totals = page.Totals
		}
		if !page.HasMore() || *page.Meta.NextCursor == "" {
			return &all, nil
		}
		cursor = *page.Meta.NextCursor
	}
	return &all, nil
}

// HasMore reports whether a continuation cursor was returned.
func (p *StatsPage) HasMore() bool {
	return p.Meta.NextCursor != nil
}

// get performs a GET with retries and exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + query.Encode()
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
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

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
