package endpoint

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pjfl/statetable/statetable"
)

const (
	logMsgQueryCompleted   = "endpoint query completed"
	logMsgQueryFailed      = "endpoint query failed"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgExecFailed       = "database execution failed"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgPreferencesSaved = "preferences saved"
	logMsgRequestFailed    = "endpoint request failed"
	logMsgSQLExecuted      = "executed sql for: "

	logAttrError        = "error"
	logAttrTable        = "table"
	logAttrQuery        = "query"
	logAttrRecordCount  = "record_count"
	logAttrTotal        = "total_records"
	logAttrDurationMS   = "duration_ms"
	logAttrPreferenceID = "preference_id"
	logAttrStatus       = "status"

	logActionQuery           = "query"
	logActionCount           = "count"
	logActionValues          = "values"
	logActionSavePreferences = "save_preferences"
	logActionLoadPreferences = "load_preferences"

	operationQuery           = "query"
	operationValues          = "values"
	operationSavePreferences = "save_preferences"

	metricQueryDuration = "statetable_endpoint_query_duration_seconds"
	metricRowsReturned  = "statetable_endpoint_rows_returned"
	metricErrors        = "statetable_endpoint_errors_total"

	spanNameQuery           = "statetable.endpoint.query"
	spanNameValues          = "statetable.endpoint.values"
	spanNameSavePreferences = "statetable.endpoint.save_preferences"

	spanAttrTable       = "table"
	spanAttrOperation   = "operation"
	spanAttrRecordCount = "record_count"
	spanAttrErrorType   = "error_type"
	spanAttrDurationMS  = "duration_ms"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeValidation = "validation"
	errorTypeBuild      = "build_query"
	errorTypeDatabase   = "database"
	errorTypeScan       = "scan"
)

func (s *Server) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrTable, s.name, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

func (s *Server) logOperation(ctx context.Context, message string, args ...any) {
	allArgs := append([]any{logAttrTable, s.name}, args...)

	if s.logger != nil {
		s.logger.Info(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, message, allArgs...)
	}
}

func (s *Server) logWarning(ctx context.Context, message string, args ...any) {
	allArgs := append([]any{logAttrTable, s.name}, args...)

	if s.logger != nil {
		s.logger.Warn(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

func (s *Server) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error(), logAttrTable, s.name}, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// observer times one operation and reports it to the metrics and tracing collectors.
type observer struct {
	s         *Server
	ctx       context.Context
	span      statetable.SpanContext
	operation string
	start     time.Time
}

func (s *Server) startObserver(ctx context.Context, spanName, operation string) (*observer, context.Context) {
	o := &observer{s: s, operation: operation, start: time.Now()}

	if s.tracingCollector != nil {
		ctx, o.span = s.tracingCollector.StartSpan(ctx, spanName, map[string]string{
			spanAttrTable:     s.name,
			spanAttrOperation: operation,
		})
	}
	o.ctx = ctx

	return o, ctx
}

func (o *observer) finishSuccess(count int) {
	duration := time.Since(o.start)

	o.recordDuration(duration, statusSuccess)
	o.recordValue(metricRowsReturned, float64(count), statusSuccess)
	o.finishSpan(statusSuccess, map[string]string{
		spanAttrRecordCount: fmt.Sprintf("%d", count),
		spanAttrDurationMS:  fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}

func (o *observer) finishError(errorType string) {
	o.recordDuration(time.Since(o.start), statusError)
	o.incrementErrors(errorType)
	o.finishSpan(statusError, map[string]string{spanAttrErrorType: errorType})
}

func (o *observer) labels(status string) map[string]string {
	return map[string]string{spanAttrTable: o.s.name, spanAttrOperation: o.operation, labelStatus: status}
}

func (o *observer) recordDuration(duration time.Duration, status string) {
	collector := o.s.metricsCollector
	if collector == nil {
		return
	}

	if contextual, ok := collector.(statetable.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricQueryDuration, duration, o.labels(status))
		return
	}

	collector.RecordDuration(metricQueryDuration, duration, o.labels(status))
}

func (o *observer) recordValue(metric string, value float64, status string) {
	collector := o.s.metricsCollector
	if collector == nil {
		return
	}

	if contextual, ok := collector.(statetable.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(o.ctx, metric, value, o.labels(status))
		return
	}

	collector.RecordValue(metric, value, o.labels(status))
}

func (o *observer) incrementErrors(errorType string) {
	collector := o.s.metricsCollector
	if collector == nil {
		return
	}

	labels := o.labels(statusError)
	labels[spanAttrErrorType] = errorType

	if contextual, ok := collector.(statetable.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(o.ctx, metricErrors, labels)
		return
	}

	collector.IncrementCounter(metricErrors, labels)
}

func (o *observer) finishSpan(status string, attrs map[string]string) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(status)
	for key, value := range attrs {
		o.span.AddAttribute(key, value)
	}

	o.s.tracingCollector.FinishSpan(o.span, status, attrs)
}
