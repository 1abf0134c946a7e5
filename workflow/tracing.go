package workflow

import (
	"context"

	"bitbucket.org/broman/realty_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bitbucket.org/broman/realty_backend/workflow"

// DefaultTracer is the global provider's tracer for this package.
func DefaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = DefaultTracer()
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
		attrs = append(attrs, attribute.String("correlation_id", cid))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
