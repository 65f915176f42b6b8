// Package redis caches metrics summaries in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/observability"
	"xrpl-activity-lab/internal/storage"
)

// SummaryCache implements storage.SummaryCache using Redis.
type SummaryCache struct {
	client *goredis.Client
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewSummaryCache creates a new SummaryCache.
func NewSummaryCache(client *goredis.Client) *SummaryCache {
	return &SummaryCache{client: client}
}

// Compile-time interface check.
var _ storage.SummaryCache = (*SummaryCache)(nil)

// Get retrieves a cached summary.
func (c *SummaryCache) Get(ctx context.Context, key string) (*domain.MetricsSummary, error) {
	start := time.Now()
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		observability.RecordDBQuery("redis", "summary_get", time.Since(start).Seconds(), nil)
		return nil, storage.ErrNotFound
	}
	observability.RecordDBQuery("redis", "summary_get", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var s domain.MetricsSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &s, nil
}

// Set stores a summary for ttl.
func (c *SummaryCache) Set(ctx context.Context, key string, summary *domain.MetricsSummary, ttl time.Duration) error {
	if key == "" || summary == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	start := time.Now()
	err = c.client.Set(ctx, key, data, ttl).Err()
	observability.RecordDBQuery("redis", "summary_set", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

// DeleteAccount drops every cached summary of account.
func (c *SummaryCache) DeleteAccount(ctx context.Context, account string) error {
	pattern := storage.SummaryPrefix(account) + "*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan summaries: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete summaries: %w", err)
	}
	return nil
}
