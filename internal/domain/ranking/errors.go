package ranking

import "errors"

// Common errors
var (
	// ErrNotFound is returned for heap operations on an absent id and for
	// reorder events naming a task that is not in the ranked view.
	ErrNotFound = errors.New("ranked item not found")

	// ErrDuplicateID is returned when pushing an id the heap already holds.
	ErrDuplicateID = errors.New("ranked item already present")

	// ErrInvalidRange is returned when reorder ranks fall outside the view.
	ErrInvalidRange = errors.New("rank out of range")

	// ErrInvalidConfig is returned when learner configuration or weights
	// updates are out of bounds.
	ErrInvalidConfig = errors.New("invalid ranking configuration")
)
