package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the adapter's metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	eventsIngested   metric.Int64Counter
	recalcRequests   metric.Int64Counter
	debounceTriggers metric.Int64Counter
	ordersSubmitted  metric.Int64Counter
	ordersCanceled   metric.Int64Counter
	reconnects       metric.Int64Counter
}

// NewMetrics registers the adapter instruments on the provided meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := new(Metrics)
	var err error
	if m.eventsIngested, err = meter.Int64Counter("venuesync.events.ingested",
		metric.WithDescription("Venue events consumed, by event kind")); err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	if m.recalcRequests, err = meter.Int64Counter("venuesync.calc.requests",
		metric.WithDescription("Recalculation commands sent to the venue")); err != nil {
		return nil, fmt.Errorf("create calc counter: %w", err)
	}
	if m.debounceTriggers, err = meter.Int64Counter("venuesync.calc.triggers",
		metric.WithDescription("Funds-refresh triggers before debouncing")); err != nil {
		return nil, fmt.Errorf("create trigger counter: %w", err)
	}
	if m.ordersSubmitted, err = meter.Int64Counter("venuesync.orders.submitted",
		metric.WithDescription("Orders submitted to the venue")); err != nil {
		return nil, fmt.Errorf("create submit counter: %w", err)
	}
	if m.ordersCanceled, err = meter.Int64Counter("venuesync.orders.canceled",
		metric.WithDescription("Cancel commands sent to the venue")); err != nil {
		return nil, fmt.Errorf("create cancel counter: %w", err)
	}
	if m.reconnects, err = meter.Int64Counter("venuesync.transport.reconnects",
		metric.WithDescription("Streaming connection re-establishments")); err != nil {
		return nil, fmt.Errorf("create reconnect counter: %w", err)
	}
	return m, nil
}

// EventIngested counts one consumed event of the given kind.
func (m *Metrics) EventIngested(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.eventsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecalcRequested counts one recalculation command emission.
func (m *Metrics) RecalcRequested(ctx context.Context) {
	if m == nil {
		return
	}
	m.recalcRequests.Add(ctx, 1)
}

// DebounceTriggered counts one funds-refresh trigger.
func (m *Metrics) DebounceTriggered(ctx context.Context) {
	if m == nil {
		return
	}
	m.debounceTriggers.Add(ctx, 1)
}

// OrderSubmitted counts one outbound order submission.
func (m *Metrics) OrderSubmitted(ctx context.Context, orderType string) {
	if m == nil {
		return
	}
	m.ordersSubmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", orderType)))
}

// OrderCanceled counts one outbound cancel command.
func (m *Metrics) OrderCanceled(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCanceled.Add(ctx, 1)
}

// Reconnected counts one transport re-establishment.
func (m *Metrics) Reconnected(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnects.Add(ctx, 1)
}
