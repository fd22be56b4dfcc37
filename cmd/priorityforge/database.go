package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/config"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/postgres"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlite"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlstore"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/redact"
)

// openDatabase connects to the configured database and returns the dialect
// the stores and migrations need for it.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, sqlstore.Dialect, error) {
	var (
		db      *sql.DB
		dialect sqlstore.Dialect
		err     error
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.URL)
		dialect = postgres.Dialect()
	case config.DriverSQLite:
		db, err = sqlite.Open(ctx, cfg.URL)
		dialect = sqlite.Dialect()
	default:
		return nil, sqlstore.Dialect{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, sqlstore.Dialect{}, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	logger.Info("Database connection established",
		"driver", cfg.Driver,
		"url", redact.String(cfg.URL))
	return db, dialect, nil
}
