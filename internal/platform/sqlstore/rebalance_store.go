package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// RebalanceStore implements store.RebalanceStore.
type RebalanceStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.RebalanceStore = (*RebalanceStore)(nil)

// NewRebalanceStore creates a RebalanceStore over db.
func NewRebalanceStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *RebalanceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RebalanceStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "rebalance_store")),
	}
}

// Append implements store.RebalanceStore.
func (s *RebalanceStore) Append(ctx context.Context, event ranking.RebalanceEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return store.NewStoreError("rebalance_event", "append", "encode changes", err)
	}

	query := s.dialect.Rebind(`INSERT INTO rebalance_events (id, kind, trigger_id, changes, occurred_at)
		VALUES (?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		event.ID, string(event.Kind), event.TriggerID, string(changes), event.OccurredAt.UTC())
	if err != nil {
		err = s.dialect.mapError(err)
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("%w: rebalance event %s", store.ErrDuplicate, event.ID)
		}
		log.Error("failed to append rebalance event",
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()))
		return store.NewStoreError("rebalance_event", "append", "insert failed", err)
	}

	log.Debug("rebalance event stored",
		slog.String("event_id", event.ID),
		slog.Int("changes", len(event.Changes)))
	return nil
}

// ListRecent implements store.RebalanceStore.
func (s *RebalanceStore) ListRecent(ctx context.Context, limit int) ([]ranking.RebalanceEvent, error) {
	if limit <= 0 {
		limit = ranking.DefaultRebalanceHistory
	}

	query := s.dialect.Rebind(`SELECT id, kind, trigger_id, changes, occurred_at
		FROM rebalance_events ORDER BY occurred_at DESC, id DESC LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, store.NewStoreError("rebalance_event", "list", "query failed", s.dialect.mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var events []ranking.RebalanceEvent
	for rows.Next() {
		var (
			event   ranking.RebalanceEvent
			kind    string
			changes []byte
		)
		if err := rows.Scan(&event.ID, &kind, &event.TriggerID, &changes, &event.OccurredAt); err != nil {
			return nil, store.NewStoreError("rebalance_event", "list", "scan failed", err)
		}
		event.Kind = ranking.MutationKind(kind)
		event.OccurredAt = event.OccurredAt.UTC()
		if err := json.Unmarshal(changes, &event.Changes); err != nil {
			return nil, store.NewStoreError("rebalance_event", "list", "decode changes", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("rebalance_event", "list", "iteration failed", s.dialect.mapError(err))
	}
	return events, nil
}
