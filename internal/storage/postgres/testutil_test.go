package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// archivePool starts a throwaway PostgreSQL server with the activity archive
// schema applied. The server and pool are released by t.Cleanup.
func archivePool(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("activity archive needs docker; skipped with -short")
	}

	ctx := context.Background()
	server, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("archive"),
		tcpostgres.WithUsername("archive"),
		tcpostgres.WithPassword("archive"),
		testcontainers.WithWaitStrategy(
			// postgres restarts once after init; the second line is the real one.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := server.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := server.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applyArchiveSchema(t, pool)
	return pool
}

// applyArchiveSchema executes ../migrations/postgres/*.sql in name order.
// The migrations package imports this package, so its embedded copy cannot
// be used here.
func applyArchiveSchema(t *testing.T, pool *Pool) {
	t.Helper()

	paths, err := filepath.Glob("../migrations/postgres/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	sort.Strings(paths)

	for _, path := range paths {
		body, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = pool.Exec(context.Background(), string(body))
		require.NoError(t, err, filepath.Base(path))
	}
}
