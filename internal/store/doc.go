// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the ranking engine and the
// services around it to stay independent of specific database technologies.
package store
