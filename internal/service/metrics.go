package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "learnify-api"

type billingMetrics struct {
	created   metric.Int64Counter
	activated metric.Int64Counter
	cancelled metric.Int64Counter
	refunded  metric.Int64Counter
}

// newBillingMetrics registers the subscription counters on the global meter.
// Until telemetry is initialized the global meter is a no-op.
func newBillingMetrics() *billingMetrics {
	meter := otel.Meter(meterName)
	m := &billingMetrics{}
	m.created, _ = meter.Int64Counter("learnify.subscriptions.created")
	m.activated, _ = meter.Int64Counter("learnify.subscriptions.activated")
	m.cancelled, _ = meter.Int64Counter("learnify.subscriptions.cancelled")
	m.refunded, _ = meter.Int64Counter("learnify.subscriptions.refunded")
	return m
}

func newRotationCounter() metric.Int64Counter {
	c, _ := otel.Meter(meterName).Int64Counter("learnify.stats.rotations")
	return c
}

func inc(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}
