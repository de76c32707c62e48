package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/niksmo/dynamic-pricing/migrations"
)

// Migrate applies the embedded migrations of the db dialect.
//
// The migrate instance is not closed: closing it would close db.
func Migrate(db SQLDB) error {
	const op = "Migrate"
	log := slog.With("op", op, "dialect", db.dialect)

	src, err := iofs.New(migrations.FS, string(db.dialect))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var drv database.Driver
	switch db.dialect {
	case DialectPostgres:
		drv, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	case DialectSQLite:
		drv, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownDialect, db.dialect)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(db.dialect), drv)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("migrations applied")
	return nil
}
