package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "xrpl-activity-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations makes sure the series database named by dsn exists,
// then creates the daily series tables in it. The returned connection is bound
// to that database and owned by the caller.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	database, err := seriesDatabase(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, database); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, database)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", database, err)
	}
	if err := applySeriesSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// createDatabase runs CREATE DATABASE over a connection without a default
// database, since the target may not exist yet.
func createDatabase(ctx context.Context, dsn, database string) error {
	conn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse server: %w", err)
	}
	defer conn.Close()

	if err := conn.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+database); err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	return nil
}

func applySeriesSchema(ctx context.Context, conn *chstore.Conn) error {
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}
	for _, m := range files {
		stmts, err := statements(m.sql)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.name, err)
		}
		// One statement per Exec over the native protocol.
		for i, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", m.name, i+1, err)
			}
		}
	}
	return nil
}

// statements cuts a migration file into statements at semicolons outside
// single-quoted literals. "--" comments run to end of line and are dropped.
func statements(sql string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
				cur.WriteByte(c)
			}
		case quoted:
			cur.WriteByte(c)
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					cur.WriteByte(sql[i+1])
					i++
				} else {
					quoted = false
				}
			}
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			comment = true
			i++
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return out, nil
}

// seriesDatabase returns the database path segment of a clickhouse:// DSN.
func seriesDatabase(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
	}
	return name, nil
}
