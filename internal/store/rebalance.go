package store

import (
	"context"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
)

// RebalanceStore is the append-only log of rebalance events, kept as
// training data for offline analysis of the learner.
type RebalanceStore interface {
	// Append stores an event. Appending an event ID twice returns ErrDuplicate.
	Append(ctx context.Context, event ranking.RebalanceEvent) error

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]ranking.RebalanceEvent, error)
}
