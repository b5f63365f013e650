package oteladapters_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/endpoint"
	"github.com/pjfl/statetable/statetable/oteladapters"
)

type recordingLogger struct {
	noop.Logger
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.records = append(l.records, record)
}

func newMeter() (*sdkmetric.ManualReader, *oteladapters.MetricsCollector) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return reader, oteladapters.NewMetricsCollector(provider.Meter("test"))
}

func newTracer() (*tracetest.InMemoryExporter, *oteladapters.TracingCollector) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return exporter, oteladapters.NewTracingCollector(provider.Tracer("test"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	for _, scope := range resourceMetrics.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}

	require.Failf(t, "metric not found", "%s", name)

	return nil
}

func Test_SlogLogger_WritesBothLoggerFlavours(t *testing.T) {
	var buf bytes.Buffer
	logger := oteladapters.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("plain debug", "table", "people")
	logger.WarnContext(context.Background(), "contextual warn", "status", 404)

	output := buf.String()
	assert.Contains(t, output, `"msg":"plain debug"`)
	assert.Contains(t, output, `"table":"people"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"status":404`)
}

func Test_NewSlogBridgeLogger_LogsWithoutAConfiguredProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")

	assert.NotPanics(t, func() {
		logger.Info("info")
		logger.ErrorContext(context.Background(), "error", "key", "value")
	})
}

func Test_LogEmitter_EmitsTypedAttributes(t *testing.T) {
	recorder := &recordingLogger{}
	emitter := oteladapters.NewLogEmitter(recorder)

	emitter.ErrorContext(context.Background(), "fetch failed", "status", 500, "stale", false, "url", "/people", "dangling")

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, log.SeverityError, record.Severity())
	assert.Equal(t, "fetch failed", record.Body().AsString())

	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	assert.Len(t, attrs, 3)
	assert.Equal(t, int64(500), attrs["status"].AsInt64())
	assert.False(t, attrs["stale"].AsBool())
	assert.Equal(t, "/people", attrs["url"].AsString())
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	reader, collector := newMeter()

	collector.RecordDuration("statetable_fetch_duration_seconds", 250*time.Millisecond, map[string]string{"status": "success"})
	collector.RecordDurationContext(context.Background(), "statetable_fetch_duration_seconds", 250*time.Millisecond, map[string]string{"status": "success"})

	histogram, ok := collect(t, reader, "statetable_fetch_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(2), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.5, histogram.DataPoints[0].Sum, 0.0001)

	expected := attribute.NewSet(attribute.String("status", "success"))
	assert.True(t, histogram.DataPoints[0].Attributes.Equals(&expected))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	reader, collector := newMeter()

	collector.IncrementCounter("statetable_fetch_errors_total", map[string]string{"error_type": "transport"})
	collector.IncrementCounterContext(context.Background(), "statetable_fetch_errors_total", map[string]string{"error_type": "transport"})
	collector.IncrementCounter("statetable_fetch_errors_total", map[string]string{"error_type": "decode"})

	sum, ok := collect(t, reader, "statetable_fetch_errors_total").(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	totals := make(map[string]int64)
	for _, point := range sum.DataPoints {
		errorType, _ := point.Attributes.Value("error_type")
		totals[errorType.AsString()] = point.Value
	}
	assert.Equal(t, map[string]int64{"transport": 2, "decode": 1}, totals)
}

func Test_MetricsCollector_RecordValueKeepsTheLastValue(t *testing.T) {
	reader, collector := newMeter()

	collector.RecordValue("statetable_fetch_records", 20, nil)
	collector.RecordValueContext(context.Background(), "statetable_fetch_records", 7, nil)

	gauge, ok := collect(t, reader, "statetable_fetch_records").(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	testCases := []struct {
		status       string
		expectedCode codes.Code
	}{
		{status: "success", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error},
		{status: "canceled", expectedCode: codes.Error},
		{status: "stale", expectedCode: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			exporter, collector := newTracer()

			_, span := collector.StartSpan(context.Background(), "statetable.fetch", map[string]string{"table": "people"})
			span.AddAttribute("request_id", "r-1")
			collector.FinishSpan(span, tc.status, map[string]string{"record_count": "3"})

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, "statetable.fetch", spans[0].Name)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)

			attrs := make(map[string]string)
			for _, kv := range spans[0].Attributes {
				attrs[string(kv.Key)] = kv.Value.AsString()
			}
			assert.Equal(t, "people", attrs["table"])
			assert.Equal(t, "r-1", attrs["request_id"])
			assert.Equal(t, "3", attrs["record_count"])
			if tc.expectedCode == codes.Unset {
				assert.Equal(t, tc.status, attrs["status"])
			}
		})
	}
}

func Test_TracingCollector_StartSpanNestsUnderTheContextSpan(t *testing.T) {
	exporter, collector := newTracer()

	ctx, parent := collector.StartSpan(context.Background(), "parent", nil)
	_, child := collector.StartSpan(ctx, "child", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "child", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func Test_Adapters_ReportEndpointQueries(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE records (name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO records VALUES ('a'), ('b')`)
	require.NoError(t, err)

	reader, metrics := newMeter()
	exporter, tracing := newTracer()
	server, err := endpoint.NewServerFromSQLDB(db,
		endpoint.WithDialect(endpoint.DialectSQLite),
		endpoint.WithColumns(statetable.ColumnConfig{Name: "name", Sortable: true}),
		endpoint.WithMetrics(metrics),
		endpoint.WithTracing(tracing),
	)
	require.NoError(t, err)

	result, err := server.Query(context.Background(), endpoint.RecordQuery{SortColumn: "name"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRecords)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "statetable.endpoint.query", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	histogram, ok := collect(t, reader, "statetable_endpoint_query_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, histogram.DataPoints, 1)
}
