package postgresuow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	spanAttrOperation       = "operation"
	spanAttrStatementCount  = "statement_count"
	spanAttrErrorType       = "error_type"
	spanAttrDurationMS      = "duration_ms"
	labelStatus             = "status"
	statusSuccess           = "success"
	statusError             = "error"
	durationFormatPrecision = "%.2f"
)

func (st *Store) logDebug(ctx context.Context, msg string, args ...any) {
	if st.logger != nil {
		st.logger.Debug(msg, args...)
	}

	if st.contextualLogger != nil {
		st.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logOperation logs operational information at info level.
func (st *Store) logOperation(ctx context.Context, action string, args ...any) {
	if st.logger != nil {
		st.logger.Info(logMsgOperation+action, args...)
	}

	if st.contextualLogger != nil {
		st.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (st *Store) logWarn(ctx context.Context, msg string, args ...any) {
	if st.logger != nil {
		st.logger.Warn(msg, args...)
	}

	if st.contextualLogger != nil {
		st.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// logError logs error information at the error level.
func (st *Store) logError(ctx context.Context, msg string, err error, args ...any) {
	if st.logger == nil && st.contextualLogger == nil {
		return
	}

	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if st.logger != nil {
		st.logger.Error(msg, allArgs...)
	}

	if st.contextualLogger != nil {
		st.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (st *Store) recordDuration(ctx context.Context, metricName string, duration time.Duration, status string) {
	if st.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: logActionCommit, labelStatus: status}

	if contextualCollector, ok := st.metricsCollector.(domainevents.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		return
	}

	st.metricsCollector.RecordDuration(metricName, duration, labels)
}

func (st *Store) recordValue(ctx context.Context, metricName string, value float64) {
	if st.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: logActionCommit, labelStatus: statusSuccess}

	if contextualCollector, ok := st.metricsCollector.(domainevents.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		return
	}

	st.metricsCollector.RecordValue(metricName, value, labels)
}

func (st *Store) recordError(ctx context.Context, errorType string) {
	if st.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: logActionCommit,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := st.metricsCollector.(domainevents.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricErrors, labels)
		return
	}

	st.metricsCollector.IncrementCounter(metricErrors, labels)
}

func (st *Store) startSpan(ctx context.Context) (context.Context, domainevents.SpanContext) {
	if st.tracingCollector == nil {
		return ctx, nil
	}

	return st.tracingCollector.StartSpan(ctx, spanNameCommit, map[string]string{spanAttrOperation: logActionCommit})
}

func (st *Store) finishSpanSuccess(span domainevents.SpanContext, statementCount int, duration time.Duration) {
	if st.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)

	st.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrStatementCount: fmt.Sprintf("%d", statementCount),
		spanAttrDurationMS:     fmt.Sprintf(durationFormatPrecision, float64(duration.Nanoseconds())/1e6),
	})
}

// fail records a failed commit on every configured collector and returns err.
func (st *Store) fail(ctx context.Context, span domainevents.SpanContext, errorType string, start time.Time, err error) error {
	duration := time.Since(start)

	st.recordError(ctx, errorType)
	st.recordDuration(ctx, metricCommitDuration, duration, statusError)

	if st.tracingCollector != nil && span != nil {
		span.SetStatus(statusError)
		span.AddAttribute(spanAttrErrorType, errorType)

		st.tracingCollector.FinishSpan(span, statusError, map[string]string{
			spanAttrErrorType:  errorType,
			spanAttrDurationMS: fmt.Sprintf(durationFormatPrecision, float64(duration.Nanoseconds())/1e6),
		})
	}

	return err
}

func classifyError(err error, fallback string) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errorTypeCanceled
	}

	return fallback
}
