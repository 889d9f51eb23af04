package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartMetrics counts cart commands, rollbacks and loads
type CartMetrics struct {
	mutations *Counter
	rollbacks *Counter
	loads     *Counter
}

// NewCartMetrics registers the cart counters on meter
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	mutations, err := NewCounter(meter, "cart.mutations", "Cart commands by operation and outcome", "{mutation}")
	if err != nil {
		return nil, err
	}
	rollbacks, err := NewCounter(meter, "cart.rollbacks", "Optimistic cart changes undone after a remote failure", "{rollback}")
	if err != nil {
		return nil, err
	}
	loads, err := NewCounter(meter, "cart.loads", "Cart loads by source", "{load}")
	if err != nil {
		return nil, err
	}
	return &CartMetrics{mutations: mutations, rollbacks: rollbacks, loads: loads}, nil
}

// RecordMutation counts one finished cart command
func (m *CartMetrics) RecordMutation(ctx context.Context, operation, outcome string) {
	m.mutations.Inc(ctx,
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
}

// RecordRollback counts one rolled back optimistic change
func (m *CartMetrics) RecordRollback(ctx context.Context, operation string) {
	m.rollbacks.Inc(ctx, attribute.String("operation", operation))
}

// RecordLoad counts one applied load
func (m *CartMetrics) RecordLoad(ctx context.Context, source string) {
	m.loads.Inc(ctx, attribute.String("source", source))
}
