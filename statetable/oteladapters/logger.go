// Package oteladapters implements the statetable observability interfaces on top of
// OpenTelemetry, so a table, its resultset and the endpoint can report to any configured
// OpenTelemetry pipeline.
package oteladapters

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/pjfl/statetable/statetable"
)

// SlogLogger implements statetable.Logger and statetable.ContextualLogger on a slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger returns a SlogLogger writing through the OpenTelemetry slog bridge of the
// global LoggerProvider. Records logged with a context carry its trace and span ids.
func NewSlogBridgeLogger(name string) *SlogLogger {
	return &SlogLogger{logger: otelslog.NewLogger(name)}
}

// NewSlogLogger wraps an existing slog.Logger as is.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

var (
	_ statetable.Logger           = (*SlogLogger)(nil)
	_ statetable.ContextualLogger = (*SlogLogger)(nil)
)

// LogEmitter implements statetable.ContextualLogger by emitting records on an OpenTelemetry
// log.Logger directly.
type LogEmitter struct {
	logger log.Logger
}

// NewLogEmitter creates a LogEmitter for logger.
func NewLogEmitter(logger log.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) DebugContext(ctx context.Context, msg string, args ...any) {
	e.emit(ctx, log.SeverityDebug, msg, args)
}

func (e *LogEmitter) InfoContext(ctx context.Context, msg string, args ...any) {
	e.emit(ctx, log.SeverityInfo, msg, args)
}

func (e *LogEmitter) WarnContext(ctx context.Context, msg string, args ...any) {
	e.emit(ctx, log.SeverityWarn, msg, args)
}

func (e *LogEmitter) ErrorContext(ctx context.Context, msg string, args ...any) {
	e.emit(ctx, log.SeverityError, msg, args)
}

func (e *LogEmitter) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	var record log.Record
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		record.AddAttributes(logValue(key, args[i+1]))
	}

	e.logger.Emit(ctx, record)
}

// logValue keeps numbers and booleans typed; everything else is logged as text.
func logValue(key string, value any) log.KeyValue {
	switch v := value.(type) {
	case string:
		return log.String(key, v)
	case bool:
		return log.Bool(key, v)
	case int:
		return log.Int(key, v)
	case int64:
		return log.Int64(key, v)
	case float64:
		return log.Float64(key, v)
	case error:
		return log.String(key, v.Error())
	default:
		return log.String(key, fmt.Sprint(v))
	}
}

var _ statetable.ContextualLogger = (*LogEmitter)(nil)
