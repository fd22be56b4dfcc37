// Package sqlstore implements the store interfaces on database/sql. The same
// queries run against PostgreSQL and SQLite; a Dialect supplies placeholder
// rebinding and driver-specific error mapping.
package sqlstore
