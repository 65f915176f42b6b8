package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "comments and blank statements dropped",
			sql:  "-- header\nCREATE TABLE a (x UInt8);\n\n;\nCREATE TABLE b (y UInt8) -- trailing\n;",
			want: []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"},
		},
		{
			name: "semicolon inside literal",
			sql:  "INSERT INTO t VALUES ('a;b');INSERT INTO t VALUES ('it''s;')",
			want: []string{"INSERT INTO t VALUES ('a;b')", "INSERT INTO t VALUES ('it''s;')"},
		},
		{
			name: "dashes inside literal",
			sql:  "SELECT '--not a comment'",
			want: []string{"SELECT '--not a comment'"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := statements(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatements_UnterminatedLiteral(t *testing.T) {
	_, err := statements("SELECT 'open;")
	assert.Error(t, err)
}

func TestStatements_EmbeddedSeriesSchema(t *testing.T) {
	files, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, m := range files {
		stmts, err := statements(m.sql)
		require.NoError(t, err, m.name)
		assert.Len(t, stmts, 1, m.name)
		assert.Contains(t, stmts[0], "daily_series")
	}

	names, err := fs.Glob(ClickhouseFS, "clickhouse/*.sql")
	require.NoError(t, err)
	assert.Len(t, names, len(files))
}

func TestSeriesDatabase(t *testing.T) {
	db, err := seriesDatabase("clickhouse://user:pw@localhost:9000/xrpl_series?dial_timeout=5s")
	require.NoError(t, err)
	assert.Equal(t, "xrpl_series", db)

	_, err = seriesDatabase("clickhouse://localhost:9000")
	assert.Error(t, err)
	_, err = seriesDatabase("clickhouse://localhost:9000/")
	assert.Error(t, err)
}
