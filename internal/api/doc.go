// Package api serves the task and ranking REST endpoints. Handlers decode
// and validate requests, call the TaskService and translate its errors into
// status codes and client-safe messages.
package api
