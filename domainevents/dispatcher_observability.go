package domainevents

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	metricCaptureDuration      = "domainevents_capture_duration_seconds"
	metricDispatchDuration     = "domainevents_dispatch_duration_seconds"
	metricSaveDuration         = "domainevents_save_duration_seconds"
	metricEventsCaptured       = "domainevents_events_captured"
	metricEventsDispatched     = "domainevents_events_dispatched"
	metricEventsDiscarded      = "domainevents_events_discarded"
	metricBatchSize            = "domainevents_batch_size"
	metricUnresolvedTypeTokens = "domainevents_unresolved_type_tokens_total"
	metricErrors               = "domainevents_errors_total"
	spanNameSave               = "domainevents.save"
	spanNameCapture            = "domainevents.capture"
	spanNameDispatch           = "domainevents.dispatch"
	spanAttrOperation          = "operation"
	spanAttrEventCount         = "event_count"
	spanAttrEventType          = "event_type"
	spanAttrErrorType          = "error_type"
	spanAttrDurationMS         = "duration_ms"
	spanAttrPublisherCount     = "publisher_count"
	labelStatus                = "status"
	statusSuccess              = "success"
	statusError                = "error"
)

// logDebug logs at debug level to every configured logger.
func (d *Dispatcher) logDebug(ctx context.Context, msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}

	if d.contextualLogger != nil {
		d.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logOperation logs operational information at info level to every configured logger.
func (d *Dispatcher) logOperation(ctx context.Context, action string, args ...any) {
	if d.logger != nil {
		d.logger.Info(logMsgOperation+action, args...)
	}

	if d.contextualLogger != nil {
		d.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs at warn level to every configured logger.
func (d *Dispatcher) logWarn(ctx context.Context, msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}

	if d.contextualLogger != nil {
		d.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// logError logs error information at the error level to every configured logger.
func (d *Dispatcher) logError(ctx context.Context, msg string, err error, args ...any) {
	if d.logger == nil && d.contextualLogger == nil {
		return
	}

	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if d.logger != nil {
		d.logger.Error(msg, allArgs...)
	}

	if d.contextualLogger != nil {
		d.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDuration records a duration metric, with context if the collector supports it.
func (d *Dispatcher) recordDuration(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if d.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := d.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	d.metricsCollector.RecordDuration(metricName, duration, labels)
}

// recordValue records a value metric, with context if the collector supports it.
func (d *Dispatcher) recordValue(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if d.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := d.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	d.metricsCollector.RecordValue(metricName, value, labels)
}

// recordCount records the number of events handled by one operation.
func (d *Dispatcher) recordCount(ctx context.Context, metricName string, count int, operation string) {
	d.recordValue(ctx, metricName, float64(count), operation, statusSuccess)
}

// recordCounter increments a counter metric, with context if the collector supports it.
func (d *Dispatcher) recordCounter(ctx context.Context, metricName string, labels map[string]string) {
	if d.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := d.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
		return
	}

	d.metricsCollector.IncrementCounter(metricName, labels)
}

// recordError increments the error counter for the given operation and error type.
func (d *Dispatcher) recordError(ctx context.Context, operation, errorType string) {
	d.recordCounter(ctx, metricErrors, map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

// startSpan starts a tracing span if the tracing collector is configured.
func (d *Dispatcher) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if d.tracingCollector == nil {
		return ctx, nil
	}

	return d.tracingCollector.StartSpan(ctx, name, attrs)
}

// finishSpanSuccess finishes a span with the number of handled events.
func (d *Dispatcher) finishSpanSuccess(span SpanContext, eventCount int, duration time.Duration) {
	if d.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)

	d.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrEventCount: fmt.Sprintf("%d", eventCount),
		spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
	})
}

// finishSpanError finishes a span with error details.
func (d *Dispatcher) finishSpanError(span SpanContext, errorType string, duration time.Duration) {
	if d.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusError)
	span.AddAttribute(spanAttrErrorType, errorType)

	d.tracingCollector.FinishSpan(span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6),
	})
}
