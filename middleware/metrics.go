package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for quanta metrics.
const meterName = "github.com/quantacore/quanta"

// Metrics returns middleware that records per-call metrics using the global
// OTel MeterProvider. If no MeterProvider is configured, noop instruments
// are used and this middleware becomes a pass-through.
//
// Instruments:
//   - quanta.api.call.duration (Float64Histogram): call time in seconds,
//     with attributes: method, path, status ("ok" or "error")
//   - quanta.api.calls (Int64Counter): total calls,
//     with attributes: method, path, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"quanta.api.call.duration",
		metric.WithDescription("Duration of API calls in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	calls, cErr := meter.Int64Counter(
		"quanta.api.calls",
		metric.WithDescription("Total number of API calls"),
		metric.WithUnit("{call}"),
	)
	_ = cErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, c *Call, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("method", c.Method),
			attribute.String("path", c.Path),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		calls.Add(ctx, 1, attrs)

		return err
	}
}
