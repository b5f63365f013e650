package resultset

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pjfl/statetable/statetable"
)

const (
	logMsgFetchFailed      = "data endpoint fetch failed"
	logMsgPostFailed       = "write endpoint post failed"
	logMsgPrepareURLFailed = "failed to prepare request url"
	logMsgStaleDiscarded   = "stale result discarded"
	logMsgFetchCompleted   = "fetch completed"
	logMsgRequest          = "requesting: "
	logAttrError           = "error"
	logAttrTable           = "table"
	logAttrURL             = "url"
	logAttrRequestID       = "request_id"
	logAttrRecordCount     = "record_count"
	logAttrDurationMS      = "duration_ms"
	logAttrGeneration      = "generation"
	logActionFetch         = "fetch"
	logActionFetchWith     = "fetch_with"
	logActionPost          = "post"

	metricFetchDuration = "statetable_fetch_duration_seconds"
	metricFetchRecords  = "statetable_fetch_records"
	metricFetchErrors   = "statetable_fetch_errors_total"
	metricStaleResults  = "statetable_stale_results_total"
	metricPostDuration  = "statetable_post_duration_seconds"

	spanNameFetch = "statetable.fetch"
	spanNamePost  = "statetable.post"

	spanAttrTable       = "table"
	spanAttrOperation   = "operation"
	spanAttrRequestID   = "request_id"
	spanAttrURL         = "url"
	spanAttrRecordCount = "record_count"
	spanAttrErrorType   = "error_type"
	spanAttrDurationMS  = "duration_ms"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"
	statusStale   = "stale"

	errorTypeTransport = "transport"
	errorTypeStale     = "stale"
)

func (rs *Resultset) logRequest(ctx context.Context, action, rawURL, requestID string, duration time.Duration) {
	args := []any{logAttrTable, rs.name, logAttrURL, rawURL, logAttrRequestID, requestID, logAttrDurationMS, toMilliseconds(duration)}

	if rs.logger != nil {
		rs.logger.Debug(logMsgRequest+action, args...)
	}

	if rs.contextualLogger != nil {
		rs.contextualLogger.DebugContext(ctx, logMsgRequest+action, args...)
	}
}

func (rs *Resultset) logOperation(ctx context.Context, message string, args ...any) {
	allArgs := append([]any{logAttrTable, rs.name}, args...)

	if rs.logger != nil {
		rs.logger.Info(message, allArgs...)
	}

	if rs.contextualLogger != nil {
		rs.contextualLogger.InfoContext(ctx, message, allArgs...)
	}
}

func (rs *Resultset) logWarning(ctx context.Context, message string, args ...any) {
	allArgs := append([]any{logAttrTable, rs.name}, args...)

	if rs.logger != nil {
		rs.logger.Warn(message, allArgs...)
	}

	if rs.contextualLogger != nil {
		rs.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

func (rs *Resultset) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error(), logAttrTable, rs.name}, args...)

	if rs.logger != nil {
		rs.logger.Error(message, allArgs...)
	}

	if rs.contextualLogger != nil {
		rs.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (rs *Resultset) labels(operation, status string) map[string]string {
	return map[string]string{
		spanAttrTable:     rs.name,
		spanAttrOperation: operation,
		labelStatus:       status,
	}
}

func (rs *Resultset) recordDuration(ctx context.Context, metric string, duration time.Duration, operation, status string) {
	if rs.metricsCollector == nil {
		return
	}

	labels := rs.labels(operation, status)
	if contextual, ok := rs.metricsCollector.(statetable.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	rs.metricsCollector.RecordDuration(metric, duration, labels)
}

func (rs *Resultset) recordValue(ctx context.Context, metric string, value float64, operation, status string) {
	if rs.metricsCollector == nil {
		return
	}

	labels := rs.labels(operation, status)
	if contextual, ok := rs.metricsCollector.(statetable.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	rs.metricsCollector.RecordValue(metric, value, labels)
}

func (rs *Resultset) incrementCounter(ctx context.Context, metric, operation, status, errorType string) {
	if rs.metricsCollector == nil {
		return
	}

	labels := rs.labels(operation, status)
	if errorType != "" {
		labels[spanAttrErrorType] = errorType
	}

	if contextual, ok := rs.metricsCollector.(statetable.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	rs.metricsCollector.IncrementCounter(metric, labels)
}

// requestObserver bundles the span and metrics of one request.
type requestObserver struct {
	rs        *Resultset
	ctx       context.Context
	span      statetable.SpanContext
	operation string
	requestID string
	started   time.Time
}

func (rs *Resultset) startRequest(ctx context.Context, spanName, operation, requestID, rawURL string) (*requestObserver, context.Context) {
	observer := &requestObserver{rs: rs, ctx: ctx, operation: operation, requestID: requestID, started: time.Now()}

	if rs.tracingCollector != nil {
		observer.ctx, observer.span = rs.tracingCollector.StartSpan(ctx, spanName, map[string]string{
			spanAttrTable:     rs.name,
			spanAttrOperation: operation,
			spanAttrRequestID: requestID,
			spanAttrURL:       rawURL,
		})
	}

	return observer, observer.ctx
}

func (ro *requestObserver) elapsed() time.Duration {
	return time.Since(ro.started)
}

func (ro *requestObserver) finishSuccess(recordCount int, durationMetric string) {
	duration := ro.elapsed()

	ro.rs.recordDuration(ro.ctx, durationMetric, duration, ro.operation, statusSuccess)
	if durationMetric == metricFetchDuration {
		ro.rs.recordValue(ro.ctx, metricFetchRecords, float64(recordCount), ro.operation, statusSuccess)
	}

	ro.finishSpan(statusSuccess, map[string]string{
		spanAttrRecordCount: fmt.Sprintf("%d", recordCount),
		spanAttrDurationMS:  fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}

func (ro *requestObserver) finishError(errorType, durationMetric string) {
	duration := ro.elapsed()

	ro.rs.recordDuration(ro.ctx, durationMetric, duration, ro.operation, statusError)
	ro.rs.incrementCounter(ro.ctx, metricFetchErrors, ro.operation, statusError, errorType)

	ro.finishSpan(statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}

func (ro *requestObserver) finishStale() {
	ro.rs.incrementCounter(ro.ctx, metricStaleResults, ro.operation, statusStale, errorTypeStale)
	ro.finishSpan(statusStale, map[string]string{spanAttrErrorType: errorTypeStale})
}

func (ro *requestObserver) finishSpan(status string, attrs map[string]string) {
	if ro.rs.tracingCollector == nil || ro.span == nil {
		return
	}

	ro.span.SetStatus(status)
	for key, value := range attrs {
		ro.span.AddAttribute(key, value)
	}

	ro.rs.tracingCollector.FinishSpan(ro.span, status, attrs)
}
