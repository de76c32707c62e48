package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/niksmo/dynamic-pricing/internal/adapter/storage"
	"github.com/spf13/pflag"
)

const (
	dialectFlag = "dialect"
	dsnFlag     = "dsn"

	connectTimeout = 30 * time.Second
)

func main() {
	dialect, dsn := getFlagsValues()
	validateFlags(dialect, dsn)
	makeMigrations(dialect, dsn)
}

func getFlagsValues() (dialect, dsn string) {
	d := pflag.StringP(dialectFlag, "d", string(storage.DialectPostgres),
		"postgres or sqlite")
	s := pflag.StringP(dsnFlag, "s", "", "data source name")
	pflag.Parse()
	return *d, *s
}

func validateFlags(dialect, dsn string) {
	var errs []error

	switch storage.Dialect(dialect) {
	case storage.DialectPostgres, storage.DialectSQLite:
	default:
		errs = append(errs, fmt.Errorf("--%s flag: unknown %q", dialectFlag, dialect))
	}

	if dsn == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", dsnFlag))
	}

	if len(errs) != 0 {
		slog.Error("invalid args", "err", errors.Join(errs...))
		fallDown()
	}
}

func makeMigrations(dialect, dsn string) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := storage.NewSQLDB(ctx, storage.Dialect(dialect), dsn)
	if err != nil {
		slog.Error("failed to connect", "err", err)
		fallDown()
	}
	defer db.Close()

	if err := storage.Migrate(db); err != nil {
		slog.Error("failed to migrate", "err", err)
		db.Close()
		fallDown()
	}
}

func fallDown() {
	os.Exit(2)
}
