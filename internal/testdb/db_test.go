package testdb_test

import (
	"database/sql"
	"testing"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"password hidden", "postgres://forge:secret@db:5432/forge", "postgres://forge:xxxxx@db:5432/forge"},
		{"no password", "postgres://forge@db/forge", "postgres://forge@db/forge"},
		{"no user", "postgres://db/forge", "postgres://db/forge"},
		{"unparsable", "postgres://%zz", "invalid-url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testdb.MaskURL(tt.in))
		})
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := testdb.OpenSQLite(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		_, err := tx.Exec(`INSERT INTO ranking_settings (name, value, updated_at) VALUES ('k', '{}', CURRENT_TIMESTAMP)`)
		require.NoError(t, err)
	})

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ranking_settings`).Scan(&n))
	assert.Zero(t, n)
}
