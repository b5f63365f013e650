package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/oteladapters"
)

const instrumentationName = "github.com/pjfl/statetable"

// observability bundles what the commands hand to tables and endpoints.
type observability struct {
	logger  *oteladapters.SlogLogger
	metrics statetable.MetricsCollector
	tracing statetable.TracingCollector
}

// newObservability builds the logger writing to w, or the OpenTelemetry bridge with --otel.
func newObservability(w io.Writer) (observability, error) {
	if flagOTel {
		return observability{
			logger:  oteladapters.NewSlogBridgeLogger(instrumentationName),
			metrics: oteladapters.NewMetricsCollector(otel.Meter(instrumentationName)),
			tracing: oteladapters.NewTracingCollector(otel.Tracer(instrumentationName)),
		}, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
		return observability{}, fmt.Errorf("invalid --log-level %q: %w", flagLogLevel, err)
	}

	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(flagLogFormat) {
	case "text":
		handler = slog.NewTextHandler(w, options)
	case "json":
		handler = slog.NewJSONHandler(w, options)
	default:
		return observability{}, fmt.Errorf("invalid --log-format %q", flagLogFormat)
	}

	return observability{logger: oteladapters.NewSlogLogger(slog.New(handler))}, nil
}
