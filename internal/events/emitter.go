package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously to registered
// handlers, in registration order.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []registration
	logger   *slog.Logger
}

// registration is a handler plus the event types it accepts. An empty
// types set accepts everything.
type registration struct {
	handler EventHandler
	types   map[string]struct{}
}

func (r registration) accepts(eventType string) bool {
	if len(r.types) == 0 {
		return true
	}
	_, ok := r.types[eventType]
	return ok
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers. A nil logger
// falls back to slog.Default().
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// RegisterHandler subscribes handler to every event type.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.Subscribe(handler)
}

// Subscribe registers handler for the listed event types only; with no
// types it receives every event.
func (e *InMemoryEventEmitter) Subscribe(handler EventHandler, eventTypes ...string) {
	reg := registration{handler: handler}
	if len(eventTypes) > 0 {
		reg.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			reg.types[t] = struct{}{}
		}
	}

	e.mu.Lock()
	e.handlers = append(e.handlers, reg)
	count := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("event handler registered",
		slog.Int("handler_count", count),
		slog.Any("event_types", eventTypes))
}

// EmitEvent delivers event to every matching handler. A failing handler does
// not stop delivery; all handler errors are joined into the result.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := make([]registration, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	log := e.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))

	var errs []error
	delivered := 0
	for i, reg := range handlers {
		if !reg.accepts(event.Type) {
			continue
		}
		delivered++
		if err := reg.handler.HandleEvent(ctx, event); err != nil {
			log.Error("event handler failed",
				slog.String("error", err.Error()),
				slog.Int("handler_index", i))
			errs = append(errs, err)
		}
	}

	log.Debug("event emitted", slog.Int("delivered", delivered))
	return errors.Join(errs...)
}
