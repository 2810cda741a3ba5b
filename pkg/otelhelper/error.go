package otelhelper

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorTypeKey holds the Go type of the recorded error, e.g. *persistence.NotFoundError.
const ErrorTypeKey = "automation.error.type"

// SetError marks span as failed. attrs land on the "automation.failure" event so
// the failing step or action can be told apart from the span's own attributes.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	errType := attribute.String(ErrorTypeKey, fmt.Sprintf("%T", err))

	span.RecordError(err, trace.WithAttributes(errType))
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("automation.failure", trace.WithAttributes(append(attrs, errType)...))
}
