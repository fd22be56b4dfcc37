package testdb

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/migrations"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/postgres"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlite"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 10 * time.Second

// PostgresURLEnv names the variable holding the Postgres test database URL.
const PostgresURLEnv = "PFORGE_TEST_DATABASE_URL"

// PostgresURL returns the configured Postgres test URL, or "".
func PostgresURL() string {
	return os.Getenv(PostgresURLEnv)
}

// OpenSQLite returns a migrated in-memory SQLite database that is closed
// when the test finishes.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err, "failed to open in-memory sqlite")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Run(ctx, db, sqlite.Dialect().Name, migrations.CommandUp, nil),
		"failed to migrate sqlite")
	return db
}

// OpenPostgres returns a migrated Postgres database, skipping the test when
// no URL is configured. The schema is reset first so every caller starts
// from empty tables.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := PostgresURL()
	if dbURL == "" {
		t.Skipf("%s not set, skipping postgres test", PostgresURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, dbURL)
	require.NoError(t, err, "failed to connect to %s", MaskURL(dbURL))
	t.Cleanup(func() { _ = db.Close() })

	dialect := postgres.Dialect().Name
	require.NoError(t, migrations.Run(ctx, db, dialect, migrations.CommandReset, nil), "failed to reset schema")
	require.NoError(t, migrations.Run(ctx, db, dialect, migrations.CommandUp, nil), "failed to migrate postgres")
	return db
}

// MaskURL hides the password of a database URL for log output.
func MaskURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.String()
}
