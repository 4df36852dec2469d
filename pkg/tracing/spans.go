package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DBSpanConfig describes a database span.
type DBSpanConfig struct {
	Operation string
	Table     string
}

// StartDBSpan starts a span for a database operation.
func StartDBSpan(ctx context.Context, cfg DBSpanConfig) (context.Context, trace.Span) {
	ctx, span := GetTracer("database").Start(ctx, cfg.Operation+" "+cfg.Table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", cfg.Operation),
			attribute.String("db.sql.table", cfg.Table),
		),
	)
	return ctx, span
}

// EndDBSpan records the outcome on a database span.
func EndDBSpan(span trace.Span, err error, rowsAffected int64) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	}
}

// StartServiceSpan starts a span for a service-layer operation.
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return GetTracer(service).Start(ctx, operation)
}
