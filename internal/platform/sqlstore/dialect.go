package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// Dialect adapts the shared queries to one database driver.
type Dialect struct {
	// Name is the goose dialect name, "postgres" or "sqlite3".
	Name string

	// Numbered placeholders ($1, $2, ...) replace "?" when true.
	Numbered bool

	// MapError translates driver errors into store errors. It may be nil.
	MapError func(error) error
}

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
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

// mapError applies the dialect mapping and the driver-independent ones.
func (d Dialect) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	if d.MapError != nil {
		return d.MapError(err)
	}
	return err
}

// checkRowsAffected returns notFound when an UPDATE or DELETE touched nothing.
func checkRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to checkRowsAffected")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
