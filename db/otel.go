package db

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Skryldev/user-records/db"

// ─────────────────────────────────────────────────────────────────────────────
// OpenTelemetry tracer
// ─────────────────────────────────────────────────────────────────────────────

type otelTracer struct {
	tracer trace.Tracer
	system string
}

// NewOTelTracer returns a Tracer that opens one client span per statement.
// A nil tracer falls back to the global provider, which is a no-op until
// the process installs an SDK.
func NewOTelTracer(tracer trace.Tracer, system string) Tracer {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &otelTracer{tracer: tracer, system: system}
}

func (t *otelTracer) StartSpan(ctx context.Context, query string) context.Context {
	op := operationOf(query)
	ctx, _ = t.tracer.Start(ctx, "db."+strings.ToLower(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.system),
			attribute.String("db.operation", op),
			attribute.String("db.statement", trimQuery(query)),
		),
	)
	return ctx
}

func (t *otelTracer) EndSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil && !IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ─────────────────────────────────────────────────────────────────────────────
// OpenTelemetry metrics
// ─────────────────────────────────────────────────────────────────────────────

type otelMetrics struct {
	system   string
	count    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewOTelMetrics returns a MetricsCollector recording query count, duration
// and errors. A nil meter falls back to the global provider.
func NewOTelMetrics(meter metric.Meter, system string) (MetricsCollector, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	count, err := meter.Int64Counter("db.query.count",
		metric.WithDescription("Total number of SQL statements executed"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("db.query.errors",
		metric.WithDescription("Total number of failed SQL statements"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	return &otelMetrics{system: system, count: count, duration: duration, errors: errs}, nil
}

func (m *otelMetrics) RecordQuery(ctx context.Context, query string, d time.Duration, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("db.system", m.system),
		attribute.String("db.operation", operationOf(query)),
	)
	m.count.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
	if !success {
		m.errors.Add(ctx, 1, attrs)
	}
}

// operationOf returns the leading SQL keyword of query, upper-cased.
func operationOf(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
