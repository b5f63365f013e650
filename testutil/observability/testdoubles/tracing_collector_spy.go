package testdoubles

import (
	"context"
	"sync"

	"github.com/pjfl/statetable/statetable"
)

// SpanSpy is a statetable.SpanContext that remembers what was set on it.
type SpanSpy struct {
	Name            string
	StartAttributes map[string]string

	mu         sync.Mutex
	status     string
	finished   bool
	attributes map[string]string
}

// SetStatus implements statetable.SpanContext.
func (s *SpanSpy) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

// AddAttribute implements statetable.SpanContext.
func (s *SpanSpy) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attributes == nil {
		s.attributes = make(map[string]string)
	}
	s.attributes[key] = value
}

// Status returns the last status set.
func (s *SpanSpy) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Finished reports whether FinishSpan was called for the span.
func (s *SpanSpy) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.finished
}

// Attribute returns an attribute added during the span's lifetime.
func (s *SpanSpy) Attribute(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attributes[key]
}

// TracingCollectorSpy captures calls to statetable.TracingCollector.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpanSpy
}

// NewTracingCollectorSpy creates an empty TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements statetable.TracingCollector.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, statetable.SpanContext) {
	span := &SpanSpy{Name: name, StartAttributes: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		span.StartAttributes[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = append(s.spans, span)

	return ctx, span
}

// FinishSpan implements statetable.TracingCollector.
func (s *TracingCollectorSpy) FinishSpan(spanCtx statetable.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanSpy)
	if !ok {
		return
	}

	span.SetStatus(status)
	for k, v := range attrs {
		span.AddAttribute(k, v)
	}

	span.mu.Lock()
	span.finished = true
	span.mu.Unlock()
}

// Spans returns the spans started so far.
func (s *TracingCollectorSpy) Spans() []*SpanSpy {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*SpanSpy(nil), s.spans...)
}

// SpansNamed returns the spans started with the given name.
func (s *TracingCollectorSpy) SpansNamed(name string) []*SpanSpy {
	var matching []*SpanSpy
	for _, span := range s.Spans() {
		if span.Name == name {
			matching = append(matching, span)
		}
	}

	return matching
}
