package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/events"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// JobTypeRebalanceExport identifies jobs that persist a rebalance event.
const JobTypeRebalanceExport = "rebalance_export"

// RebalanceExporter is an events.EventHandler that copies rebalance events
// into a RebalanceStore through the job queue. It never blocks the emitter:
// when the queue is full the event is dropped and a warning is logged.
type RebalanceExporter struct {
	queue  QueueWriter
	store  store.RebalanceStore
	logger *slog.Logger
}

var _ events.EventHandler = (*RebalanceExporter)(nil)

// NewRebalanceExporter creates an exporter that enqueues onto queue and
// writes to rebalances.
func NewRebalanceExporter(queue QueueWriter, rebalances store.RebalanceStore, logger *slog.Logger) *RebalanceExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebalanceExporter{
		queue:  queue,
		store:  rebalances,
		logger: logger.With(slog.String("component", "rebalance_exporter")),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are
// ignored.
func (x *RebalanceExporter) HandleEvent(_ context.Context, event *events.Event) error {
	if event.Type != events.TypeRebalance {
		return nil
	}

	var rebalance ranking.RebalanceEvent
	if err := event.UnmarshalPayload(&rebalance); err != nil {
		x.logger.Error("failed to decode rebalance payload",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to decode rebalance payload: %w", err)
	}

	job := &rebalanceJob{event: rebalance, store: x.store}
	if err := x.queue.Enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
			x.logger.Warn("dropping rebalance event",
				slog.String("rebalance_id", rebalance.ID),
				slog.String("kind", string(rebalance.Kind)),
				slog.String("reason", err.Error()))
			return nil
		}
		return err
	}
	return nil
}

type rebalanceJob struct {
	event ranking.RebalanceEvent
	store store.RebalanceStore
}

func (j *rebalanceJob) ID() string   { return j.event.ID }
func (j *rebalanceJob) Type() string { return JobTypeRebalanceExport }

func (j *rebalanceJob) Execute(ctx context.Context) error {
	if err := j.store.Append(ctx, j.event); err != nil {
		// A replayed event is already stored.
		if store.IsDuplicateError(err) {
			return nil
		}
		return err
	}
	return nil
}
