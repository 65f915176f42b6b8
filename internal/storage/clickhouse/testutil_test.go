package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const seriesImage = "clickhouse/clickhouse-server:24.1-alpine"

// seriesConn starts a throwaway ClickHouse server, creates the daily_series
// table and returns a connection to the "series" database. The server is
// torn down by t.Cleanup.
func seriesConn(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("daily series store needs docker; skipped with -short")
	}

	ctx := context.Background()
	server, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        seriesImage,
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "series"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("9000/tcp"),
				wait.ForLog("Ready for connections").WithStartupTimeout(90*time.Second),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start %s", seriesImage)
	t.Cleanup(func() {
		if err := server.Terminate(context.Background()); err != nil {
			t.Logf("terminate clickhouse: %v", err)
		}
	})

	endpoint, err := server.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/series", endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	createSeriesSchema(t, conn)
	return conn
}

// createSeriesSchema executes each file of ../migrations/clickhouse. Every
// file holds a single statement; the trailing semicolon is cut because the
// native protocol rejects it.
func createSeriesSchema(t *testing.T, conn *Conn) {
	t.Helper()

	paths, err := filepath.Glob("../migrations/clickhouse/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	sort.Strings(paths)

	for _, path := range paths {
		body, err := os.ReadFile(path)
		require.NoError(t, err)
		stmt := strings.TrimRight(strings.TrimSpace(string(body)), ";")
		require.NoError(t, conn.Exec(context.Background(), stmt), filepath.Base(path))
	}
}
