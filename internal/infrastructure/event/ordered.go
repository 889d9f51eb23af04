package event

import (
	"context"
	"sync"

	"github.com/bookstore/storefront/internal/domain/shared"
)

// OrderedPublisher separates recording events from publishing them. Callers
// Enqueue while holding their own lock, so the queue order matches the order
// of the state changes, and Flush after releasing it, so handlers may call
// back into the caller.
type OrderedPublisher struct {
	publisher shared.EventPublisher

	mu       sync.Mutex
	queue    []pending
	flushing bool
}

// NewOrderedPublisher creates an OrderedPublisher over publisher
func NewOrderedPublisher(publisher shared.EventPublisher) *OrderedPublisher {
	return &OrderedPublisher{publisher: publisher}
}

// Enqueue records events for the next Flush
func (p *OrderedPublisher) Enqueue(ctx context.Context, events ...shared.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		if e != nil {
			p.queue = append(p.queue, pending{ctx: ctx, event: e})
		}
	}
}

// Flush publishes queued events in order. If another Flush is running,
// including one further up the current call stack, it drains the queue
// instead and Flush returns immediately.
func (p *OrderedPublisher) Flush() {
	p.mu.Lock()
	if p.flushing {
		p.mu.Unlock()
		return
	}
	p.flushing = true
	for len(p.queue) > 0 {
		next := p.queue[0]
		p.queue[0] = pending{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		_ = p.publisher.Publish(next.ctx, next.event)

		p.mu.Lock()
	}
	p.queue = nil
	p.flushing = false
	p.mu.Unlock()
}
