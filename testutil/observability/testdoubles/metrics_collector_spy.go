package testdoubles

import (
	"context"
	"sync"
	"time"
)

// MetricRecord is one captured metrics call. Kind is "duration", "counter" or "value".
type MetricRecord struct {
	Kind       string
	Metric     string
	Duration   time.Duration
	Value      float64
	Labels     map[string]string
	Contextual bool
}

// MetricsCollectorSpy captures calls to statetable.ContextualMetricsCollector.
type MetricsCollectorSpy struct {
	mu      sync.Mutex
	records []MetricRecord
}

// NewMetricsCollectorSpy creates an empty MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (s *MetricsCollectorSpy) record(r MetricRecord) {
	labels := make(map[string]string, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = v
	}
	r.Labels = labels

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
}

// RecordDuration implements statetable.MetricsCollector.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(MetricRecord{Kind: "duration", Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements statetable.MetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(MetricRecord{Kind: "counter", Metric: metric, Labels: labels})
}

// RecordValue implements statetable.MetricsCollector.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(MetricRecord{Kind: "value", Metric: metric, Value: value, Labels: labels})
}

// RecordDurationContext implements statetable.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.record(MetricRecord{Kind: "duration", Metric: metric, Duration: duration, Labels: labels, Contextual: true})
}

// IncrementCounterContext implements statetable.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.record(MetricRecord{Kind: "counter", Metric: metric, Labels: labels, Contextual: true})
}

// RecordValueContext implements statetable.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.record(MetricRecord{Kind: "value", Metric: metric, Value: value, Labels: labels, Contextual: true})
}

// Records returns a copy of the captured records.
func (s *MetricsCollectorSpy) Records() []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]MetricRecord(nil), s.records...)
}

// ForMetric returns the captured records of one metric.
func (s *MetricsCollectorSpy) ForMetric(metric string) []MetricRecord {
	var matching []MetricRecord
	for _, record := range s.Records() {
		if record.Metric == metric {
			matching = append(matching, record)
		}
	}

	return matching
}

// HasMetricWithLabel reports whether metric was recorded with the given label value.
func (s *MetricsCollectorSpy) HasMetricWithLabel(metric, key, value string) bool {
	for _, record := range s.ForMetric(metric) {
		if record.Labels[key] == value {
			return true
		}
	}

	return false
}
