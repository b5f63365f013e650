package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjfl/statetable/statetable"
)

const attrStatus = "status"

// TracingCollector implements statetable.TracingCollector with OpenTelemetry spans.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a TracingCollector on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, statetable.SpanContext) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes(attrs)...))

	return ctx, &Span{span: span}
}

// FinishSpan adds attrs, sets status and ends the span. Spans not started by a
// TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx statetable.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*Span)
	if !ok {
		return
	}

	span.span.SetAttributes(attributes(attrs)...)
	span.SetStatus(status)
	span.span.End()
}

// Span wraps an OpenTelemetry span as a statetable.SpanContext.
type Span struct {
	span trace.Span
}

// SetStatus maps a statetable status onto the span. A stale fetch is not an error: it is
// recorded as an attribute and leaves the status unset.
func (s *Span) SetStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		s.span.SetStatus(codes.Error, "operation failed")
	case "cancelled", "canceled":
		s.span.SetStatus(codes.Error, "operation cancelled")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

// AddAttribute sets a string attribute on the span.
func (s *Span) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var (
	_ statetable.TracingCollector = (*TracingCollector)(nil)
	_ statetable.SpanContext      = (*Span)(nil)
)
