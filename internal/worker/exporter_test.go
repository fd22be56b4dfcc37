package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/events"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRebalanceStore struct {
	mu     sync.Mutex
	events []ranking.RebalanceEvent
	err    error
}

func (s *memoryRebalanceStore) Append(_ context.Context, event ranking.RebalanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memoryRebalanceStore) ListRecent(_ context.Context, _ int) ([]ranking.RebalanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ranking.RebalanceEvent(nil), s.events...), nil
}

func rebalanceEvent(t *testing.T, id string) *events.Event {
	t.Helper()
	event, err := events.NewEvent(events.TypeRebalance, ranking.RebalanceEvent{
		ID:         id,
		Kind:       ranking.MutationTaskCreated,
		TriggerID:  "t-" + id,
		Changes:    []ranking.RankChange{{TaskID: "x", RankBefore: 4, RankAfter: 1}},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return event
}

func TestRebalanceExporterStoresEvents(t *testing.T) {
	t.Parallel()

	sink := &memoryRebalanceStore{}
	q := NewQueue(10, discardLogger())
	pool := NewPool(q, PoolConfig{WorkerCount: 2}, discardLogger())
	exporter := NewRebalanceExporter(q, sink, discardLogger())

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(exporter)

	pool.Start()
	for i := 0; i < 3; i++ {
		require.NoError(t, emitter.EmitEvent(context.Background(), rebalanceEvent(t, fmt.Sprint(i))))
	}
	other, err := events.NewEvent(events.TypeReorder, map[string]string{"task_id": "x"})
	require.NoError(t, err)
	require.NoError(t, emitter.EmitEvent(context.Background(), other))

	q.Close()
	require.NoError(t, pool.Stop(context.Background()))

	stored, err := sink.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, e := range stored {
		assert.Equal(t, ranking.MutationTaskCreated, e.Kind)
		require.Len(t, e.Changes, 1)
		assert.Equal(t, 3, e.Changes[0].Shift())
	}
}

func TestRebalanceExporterDropsWhenFull(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewBufferLogger()
	q := NewQueue(1, discardLogger())
	exporter := NewRebalanceExporter(q, &memoryRebalanceStore{}, log)

	require.NoError(t, exporter.HandleEvent(context.Background(), rebalanceEvent(t, "a")))
	require.NoError(t, exporter.HandleEvent(context.Background(), rebalanceEvent(t, "b")),
		"a full queue must not fail the emitter")

	assert.Equal(t, 1, q.Len())
	assert.Contains(t, buf.String(), "dropping rebalance event")
	assert.Contains(t, buf.String(), `"rebalance_id":"b"`)
}

func TestRebalanceExporterBadPayload(t *testing.T) {
	t.Parallel()

	exporter := NewRebalanceExporter(NewQueue(1, nil), &memoryRebalanceStore{}, discardLogger())
	err := exporter.HandleEvent(context.Background(), &events.Event{Type: events.TypeRebalance, Payload: []byte("{")})
	assert.Error(t, err)
}

func TestRebalanceJobIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	dup := &rebalanceJob{store: &memoryRebalanceStore{err: fmt.Errorf("%w: e1", store.ErrDuplicate)}}
	assert.NoError(t, dup.Execute(context.Background()))

	boom := errors.New("disk full")
	failing := &rebalanceJob{store: &memoryRebalanceStore{err: boom}}
	assert.ErrorIs(t, failing.Execute(context.Background()), boom)
}
