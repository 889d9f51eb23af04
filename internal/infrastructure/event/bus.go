package event

import (
	"context"
	"sync"

	"github.com/bookstore/storefront/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events to registered handlers in publish order.
//
// Delivery is serialized: a Publish that arrives while another delivery is
// running (from a handler, or from another goroutine) appends to the queue
// and returns; the goroutine already delivering drains it. Every handler
// therefore sees every event exactly once and in the same global order, and a
// handler may publish without deadlocking.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	mu         sync.Mutex
	queue      []pending
	delivering bool
}

type pending struct {
	ctx   context.Context
	event shared.DomainEvent
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish enqueues events and delivers them unless a delivery is already in
// progress. Handler errors and panics are logged and do not stop delivery.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.Lock()
	for _, e := range events {
		if e != nil {
			b.queue = append(b.queue, pending{ctx: ctx, event: e})
		}
	}
	if b.delivering {
		b.mu.Unlock()
		return nil
	}
	b.delivering = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = pending{}
		b.queue = b.queue[1:]
		b.mu.Unlock()

		b.deliver(next)

		b.mu.Lock()
	}
	b.queue = nil
	b.delivering = false
	b.mu.Unlock()
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// SubscriberCount returns the number of registered handlers
func (b *InMemoryEventBus) SubscriberCount() int {
	return b.registry.Len()
}

func (b *InMemoryEventBus) deliver(p pending) {
	for _, handler := range b.registry.GetHandlers(p.event.EventType()) {
		if err := b.dispatchToHandler(p.ctx, handler, p.event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", p.event.EventType()),
				zap.String("event_id", p.event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
