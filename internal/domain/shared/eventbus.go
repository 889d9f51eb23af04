package shared

import "context"

// EventHandler reacts to events published on an EventBus
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}

// EventPublisher hands events to the bus in the order given
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages handler registrations. Explicit eventTypes passed
// to Subscribe take precedence over the handler's own EventTypes.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus carries session transitions and cart notifications between the
// session manager, the cart store and the change stream. Implementations
// must deliver events to every handler in publish order.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
