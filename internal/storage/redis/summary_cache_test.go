package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"xrpl-activity-lab/internal/domain"
	"xrpl-activity-lab/internal/storage"
)

// setupTestCache starts a Redis container and returns a cache on it.
func setupTestCache(t *testing.T) (*SummaryCache, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewClient(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		_ = container.Terminate(ctx)
	}
	return NewSummaryCache(client), cleanup
}

func TestSummaryCache_SetGet(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()
	ctx := context.Background()

	best := "SOLO.rIssuer"
	summary := &domain.MetricsSummary{
		Account:     "rAlice",
		Window:      domain.Window7d,
		TotalPnL:    decimal.RequireFromString("12.345678"),
		TotalTrades: 4,
		WinRate:     75,
		BestToken:   &best,
		WindowMetrics: &domain.WindowMetrics{
			Window: domain.Window7d,
			Origin: domain.OriginDerived,
			Volume: 10,
		},
	}
	key := storage.SummaryKey("rAlice", domain.Window7d, "abc")

	_, err := cache.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, cache.Set(ctx, key, summary, time.Minute))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.TotalPnL.Equal(summary.TotalPnL))
	assert.Equal(t, 4, got.TotalTrades)
	assert.Equal(t, 75.0, got.WinRate)
	assert.Equal(t, best, *got.BestToken)
	require.NotNil(t, got.WindowMetrics)
	assert.Equal(t, domain.OriginDerived, got.WindowMetrics.Origin)
}

func TestSummaryCache_DeleteAccount(t *testing.T) {
	cache, cleanup := setupTestCache(t)
	defer cleanup()
	ctx := context.Background()

	s := &domain.MetricsSummary{Account: "rAlice"}
	for _, w := range []domain.Window{domain.WindowAll, domain.Window24h} {
		require.NoError(t, cache.Set(ctx, storage.SummaryKey("rAlice", w, "v"), s, 0))
	}
	other := storage.SummaryKey("rBob", domain.WindowAll, "v")
	require.NoError(t, cache.Set(ctx, other, s, 0))

	require.NoError(t, cache.DeleteAccount(ctx, "rAlice"))

	_, err := cache.Get(ctx, storage.SummaryKey("rAlice", domain.WindowAll, "v"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = cache.Get(ctx, other)
	assert.NoError(t, err)
}

func TestSummaryCache_InvalidInput(t *testing.T) {
	cache := NewSummaryCache(nil)
	err := cache.Set(context.Background(), "", &domain.MetricsSummary{}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
