package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err on the span and marks its status as failed. Callers
// pass the fieldflow attribute keys (tenant, rule, execution, action) so
// failures can be filtered per tenant in the trace backend.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("fieldflow.error", trace.WithAttributes(
		attrs...,
	))
}
