// Package postgres opens PostgreSQL connections through the pgx stdlib
// driver and maps PostgreSQL error codes onto the store package's errors.
// Queries themselves live in sqlstore.
package postgres
