package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/niksmo/dynamic-pricing/pkg/retry"
)

var ErrUnknownDialect = errors.New("unknown sql dialect")

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type sqldb interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

// A SQLDB is a database handle aware of its placeholder dialect.
//
// Queries are written with '?' placeholders and rebound on use.
type SQLDB struct {
	*sql.DB
	dialect Dialect
}

func NewSQLDB(ctx context.Context, dialect Dialect, dsn string) (SQLDB, error) {
	const op = "NewSQLDB"
	log := slog.With("op", op, "dialect", dialect)

	db, err := open(dialect, dsn)
	if err != nil {
		return SQLDB{}, fmt.Errorf("%s: %w", op, err)
	}

	s := SQLDB{db, dialect}
	policy := retry.Policy{
		Attempts: 5,
		Backoff:  retry.Exponential(200*time.Millisecond, 3*time.Second),
		OnRetry: func(attempt int, wait time.Duration, err error) {
			log.Warn("database is not ready", "attempt", attempt, "wait", wait, "err", err)
		},
	}
	if err := retry.Do(ctx, policy, s.PingContext); err != nil {
		_ = db.Close()
		return SQLDB{}, fmt.Errorf("%s: database is unavailable: %w", op, err)
	}
	log.Info("database is available")
	return s, nil
}

func open(dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case DialectPostgres:
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, err
		}
		return sql.Open("pgx", stdlib.RegisterConnConfig(connConfig))
	case DialectSQLite:
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		// sqlite has a single writer.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
}

func (s SQLDB) Dialect() Dialect {
	return s.dialect
}

// Rebind converts '?' placeholders to the dialect form.
func (s SQLDB) Rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func (s SQLDB) Close() {
	const op = "SQLDB.Close"
	log := slog.With("op", op)

	log.Info("closing sql database...")

	if err := s.DB.Close(); err != nil {
		log.Error("failed to close", "err", err)
		return
	}
	log.Info("sql database is closed")
}
