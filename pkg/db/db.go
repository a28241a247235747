// Package db provisions the relational schema for wiktextract entries and
// provides the insert and checkpoint helpers used by the ingestion pipeline.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema_sqlite.sql
var sqliteSchemaSQL string

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// Dialect names the SQL flavour of the sink.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ErrUnknownDialect is returned for driver names other than sqlite and postgres.
var ErrUnknownDialect = errors.New("unknown database driver")

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return "", errors.Wrapf(ErrUnknownDialect, "%q", name)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// Rebind rewrites '?' placeholders into the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
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

func (d Dialect) schemaSQL() string {
	if d == Postgres {
		return postgresSchemaSQL
	}
	return sqliteSchemaSQL
}

// Open connects to the sink and verifies the connection. SQLite connections
// get foreign key enforcement; in-memory databases are pinned to a single
// connection so every statement sees the same database.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if d == SQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", d)
	}
	if d == SQLite {
		// SQLite allows one writer; a single connection also keeps :memory: coherent.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "connect %s database", d)
	}
	return conn, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// InitDB creates every table and index of the schema if absent. It is safe to
// call on every startup.
func InitDB(ctx context.Context, conn *sql.DB, d Dialect) error {
	stmts := strings.Split(d.schemaSQL(), ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, s); err != nil {
			return errors.Wrapf(err, "provision schema: %s", firstLine(s))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
