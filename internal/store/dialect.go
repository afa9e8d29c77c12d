package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Execer is the minimal interface the store needs to run statements.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	positional bool // $1, $2 instead of ?
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Dialect{Driver: driver, positional: true}, nil
	case "sqlite":
		return Dialect{Driver: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q (want postgres, pgx or sqlite)", ErrUnsupportedDriver, driver)
	}
}

// IsPostgres reports whether the dialect talks to PostgreSQL.
func (d Dialect) IsPostgres() bool {
	return d.positional
}

// Rebind rewrites ? placeholders for the dialect. Queries in this package
// never contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) tableExistsQuery() string {
	if d.IsPostgres() {
		return `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`
	}
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func tableExists(ctx context.Context, db Execer, d Dialect, name string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, d.tableExistsQuery(), name).Scan(&n); err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}
