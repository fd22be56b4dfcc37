// Package domain contains the core business entities of the priority engine:
// the tasks being ranked and the enumerations describing them. It is
// independent of storage, transport and the ranking algorithm itself.
package domain
