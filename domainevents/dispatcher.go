package domainevents

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

const (
	logMsgCaptureCompleted      = "capture completed"
	logMsgCaptureFailed         = "capture failed"
	logMsgTypeTokenSkipped      = "type token skipped, no mapper configured"
	logMsgMappingFailed         = "mapping event from entity failed"
	logMsgCommitFailed          = "commit failed, staged events are kept"
	logMsgDispatchCompleted     = "dispatch completed"
	logMsgDispatchFailed        = "dispatch failed"
	logMsgNothingToDispatch     = "nothing to dispatch"
	logMsgPublisherFailed       = "publisher failed"
	logMsgPublisherCalled       = "publisher called"
	logMsgSessionClosedUnsent   = "session closed with undispatched events"
	logMsgOperation             = "domainevents operation: "
	logAttrError                = "error"
	logAttrEventCount           = "event_count"
	logAttrEntityCount          = "entity_count"
	logAttrPublisherCount       = "publisher_count"
	logAttrSkippedCount         = "skipped_type_tokens"
	logAttrDurationMS           = "duration_ms"
	logAttrEventType            = "event_type"
	logAttrEntityType           = "entity_type"
	logAttrPublisher            = "publisher"
	logActionCapture            = "capture"
	logActionDispatch           = "dispatch"
	logActionSave               = "save"
	logActionClose              = "close"
	errorTypeMapping            = "mapping_error"
	errorTypeUnresolvedToken    = "unresolved_type_token"
	errorTypeCanceled           = "canceled"
	errorTypeCommit             = "commit_error"
	errorTypePublish            = "publish_error"
	errorTypeSessionClosed      = "session_closed"
	errorTypeOther              = "other"
	unresolvedTokenDescription  = "event type"
	publisherDescriptionPattern = "%T"
)

// Dispatcher is the composition root of the capture and dispatch pipeline.
// It holds the registered publishers, the optional Mapper and the observability collaborators,
// and creates one Session per unit of work.
type Dispatcher struct {
	publishers       []Publisher
	mapper           Mapper
	unresolvedPolicy UnresolvedTypeTokenPolicy
	sharedBuffer     *StagingBuffer
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewDispatcher creates a Dispatcher with optional configuration.
func NewDispatcher(options ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		unresolvedPolicy: SkipUnresolvedTypeTokens,
	}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// NewSession creates a Session for one unit of work.
// The session owns its StagingBuffer unless the Dispatcher was configured WithStagingBuffer.
func (d *Dispatcher) NewSession(uow UnitOfWork) (*Session, error) {
	if uow == nil {
		return nil, ErrNilUnitOfWork
	}

	buffer := d.sharedBuffer
	ownsBuffer := false
	if buffer == nil {
		buffer = NewStagingBuffer()
		ownsBuffer = true
	}

	return &Session{
		dispatcher: d,
		uow:        uow,
		buffer:     buffer,
		ownsBuffer: ownsBuffer,
	}, nil
}

// Session binds a Dispatcher to one unit of work and its StagingBuffer.
// Concurrent SaveChanges calls on the same Session are serialized by the buffer's critical sections.
type Session struct {
	dispatcher *Dispatcher
	uow        UnitOfWork
	buffer     *StagingBuffer
	ownsBuffer bool
	closed     atomic.Bool
}

// SaveChanges runs one save cycle: Capture, then Commit of the unit of work, then Dispatch.
//
// A capture failure aborts the cycle before Commit. A commit failure skips Dispatch and
// keeps the staged events. Every failure after a successful commit is wrapped in ErrDispatchFailed,
// so callers can tell committed state apart from a failed save. A publishing failure additionally
// wraps ErrPublishingFailed and is returned after the staged batch has been cleared. A context that
// ends after the commit leaves the batch staged for a later Dispatch or Close.
func (s *Session) SaveChanges(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	d := s.dispatcher
	ctx, span := d.startSpan(ctx, spanNameSave, map[string]string{spanAttrOperation: logActionSave})
	start := time.Now()

	if _, err := s.Capture(ctx); err != nil {
		d.finishSpanError(span, classifyError(err), time.Since(start))
		return err
	}

	if err := s.uow.Commit(ctx); err != nil {
		d.logWarn(ctx, logMsgCommitFailed, logAttrError, err.Error(), logAttrEventCount, s.buffer.Len())
		d.recordError(ctx, logActionSave, errorTypeCommit)
		d.finishSpanError(span, errorTypeCommit, time.Since(start))

		return errors.Join(ErrCommitFailed, err)
	}

	dispatched, err := s.Dispatch(ctx)
	if err != nil {
		d.finishSpanError(span, classifyError(err), time.Since(start))
		return errors.Join(ErrDispatchFailed, err)
	}

	d.recordDuration(ctx, metricSaveDuration, time.Since(start), logActionSave, statusSuccess)
	d.finishSpanSuccess(span, dispatched, time.Since(start))

	return nil
}

// Capture drains every tracked EventSource, resolves type tokens, attaches correlation data and
// stages the events, in entity enumeration order and then per entity insertion order.
// It returns the number of staged events.
//
// A mapping failure aborts the capture without staging anything from this cycle.
func (s *Session) Capture(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}

	d := s.dispatcher
	ctx, span := d.startSpan(ctx, spanNameCapture, map[string]string{spanAttrOperation: logActionCapture})
	start := time.Now()

	var entityCount, skipped int

	staged, err := s.buffer.Stage(ctx, func() (Batch, error) {
		items, skippedTokens, collectErr := d.collectEventItems(ctx, s.uow.TrackedEntities())
		if collectErr != nil {
			return nil, collectErr
		}

		entityCount = len(items)
		skipped = skippedTokens

		return flattenEventItems(items), nil
	})
	duration := time.Since(start)

	if err != nil {
		errorType := classifyError(err)
		d.logError(ctx, logMsgCaptureFailed, err)
		d.recordError(ctx, logActionCapture, errorType)
		d.recordDuration(ctx, metricCaptureDuration, duration, logActionCapture, statusError)
		d.finishSpanError(span, errorType, duration)

		return 0, errors.Join(ErrCapturingEventsFailed, err)
	}

	d.logOperation(ctx, logMsgCaptureCompleted,
		logAttrEventCount, staged,
		logAttrEntityCount, entityCount,
		logAttrSkippedCount, skipped,
		logAttrDurationMS, toMilliseconds(duration))
	d.recordDuration(ctx, metricCaptureDuration, duration, logActionCapture, statusSuccess)
	d.recordCount(ctx, metricEventsCaptured, staged, logActionCapture)
	d.finishSpanSuccess(span, staged, duration)

	return staged, nil
}

// Dispatch hands the staged batch to every registered Publisher and clears the buffer.
// An empty buffer causes no Publisher calls. The buffer is cleared even if a Publisher fails;
// all Publisher errors are joined with ErrPublishingFailed.
// It returns the size of the dispatched batch.
func (s *Session) Dispatch(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}

	d := s.dispatcher
	ctx, span := d.startSpan(ctx, spanNameDispatch, map[string]string{
		spanAttrOperation:      logActionDispatch,
		spanAttrPublisherCount: fmt.Sprintf("%d", len(d.publishers)),
	})
	start := time.Now()

	dispatched, err := s.buffer.Flush(ctx, d.publishAll)
	duration := time.Since(start)

	if err != nil {
		errorType := classifyError(err)
		d.logError(ctx, logMsgDispatchFailed, err, logAttrEventCount, dispatched)
		d.recordError(ctx, logActionDispatch, errorType)
		d.recordDuration(ctx, metricDispatchDuration, duration, logActionDispatch, statusError)
		d.finishSpanError(span, errorType, duration)

		return dispatched, err
	}

	if dispatched == 0 {
		d.logDebug(ctx, logMsgNothingToDispatch)
		d.finishSpanSuccess(span, 0, duration)

		return 0, nil
	}

	d.logOperation(ctx, logMsgDispatchCompleted,
		logAttrEventCount, dispatched,
		logAttrPublisherCount, len(d.publishers),
		logAttrDurationMS, toMilliseconds(duration))
	d.recordDuration(ctx, metricDispatchDuration, duration, logActionDispatch, statusSuccess)
	d.recordCount(ctx, metricEventsDispatched, dispatched, logActionDispatch)
	d.recordValue(ctx, metricBatchSize, float64(dispatched), logActionDispatch, statusSuccess)
	d.finishSpanSuccess(span, dispatched, duration)

	return dispatched, nil
}

// Staged returns the number of events waiting for dispatch.
func (s *Session) Staged() int {
	return s.buffer.Len()
}

// Close ends the session. Events still staged in a session-owned buffer are discarded;
// a shared buffer is left untouched. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if !s.ownsBuffer {
		return nil
	}

	dropped, err := s.buffer.Discard(ctx)
	if err != nil {
		return err
	}

	if dropped > 0 {
		d := s.dispatcher
		d.logWarn(ctx, logMsgSessionClosedUnsent, logAttrEventCount, dropped)
		d.recordCount(ctx, metricEventsDiscarded, dropped, logActionClose)
	}

	return nil
}

// collectEventItems drains every EventSource of the snapshot and resolves its descriptors.
func (d *Dispatcher) collectEventItems(ctx context.Context, entities []TrackedEntity) ([]EntityEventItem, int, error) {
	items := make([]EntityEventItem, 0)
	skipped := 0

	for _, entity := range entities {
		if entity.Entity == nil {
			continue
		}

		source, ok := entity.Entity.(EventSource)
		if !ok {
			continue
		}

		descriptors := source.DrainEvents()
		if len(descriptors) == 0 {
			continue
		}

		events, skippedTokens, err := d.resolveEvents(ctx, entity, descriptors)
		if err != nil {
			return nil, 0, err
		}
		skipped += skippedTokens

		if err := attachCorrelationData(entity, events); err != nil {
			return nil, 0, err
		}

		items = append(items, EntityEventItem{Entity: entity, Events: events})
	}

	return items, skipped, nil
}

// resolveEvents turns descriptors into concrete events, mapping type tokens from the entity.
func (d *Dispatcher) resolveEvents(
	ctx context.Context,
	entity TrackedEntity,
	descriptors Descriptors,
) ([]any, int, error) {

	events := make([]any, 0, len(descriptors))
	skipped := 0

	for _, descriptor := range descriptors {
		if !descriptor.IsTypeToken() {
			events = append(events, descriptor.Event())
			continue
		}

		tokenType := descriptor.TokenType()
		entityType := QualifiedTypeName(entity.RuntimeType())

		if d.mapper == nil {
			if d.unresolvedPolicy == FailOnUnresolvedTypeTokens {
				return nil, 0, fmt.Errorf("%w: %s %s for %s", ErrMapperNotConfigured, unresolvedTokenDescription, tokenType, entityType)
			}

			skipped++
			d.logWarn(ctx, logMsgTypeTokenSkipped,
				logAttrEventType, QualifiedTypeName(tokenType),
				logAttrEntityType, entityType)
			d.recordCounter(ctx, metricUnresolvedTypeTokens, map[string]string{
				spanAttrEventType: QualifiedTypeName(tokenType),
			})

			continue
		}

		event, err := d.mapper.Map(entity.Entity, entity.RuntimeType(), tokenType)
		if err != nil {
			d.logError(ctx, logMsgMappingFailed, err,
				logAttrEventType, QualifiedTypeName(tokenType),
				logAttrEntityType, entityType)

			return nil, 0, errors.Join(ErrMappingEventFailed, err)
		}

		if event == nil {
			return nil, 0, fmt.Errorf("%w: %s %s for %s", ErrMappedEventIsNil, unresolvedTokenDescription, tokenType, entityType)
		}

		events = append(events, event)
	}

	return events, skipped, nil
}

// attachCorrelationData sets sourceType and sourceKeys on every event that accepts additional data.
func attachCorrelationData(entity TrackedEntity, events []any) error {
	var data map[string]string

	for _, event := range events {
		carrier, ok := event.(AdditionalDataCarrier)
		if !ok {
			continue
		}

		if data == nil {
			correlation, err := CorrelationData(entity)
			if err != nil {
				return err
			}
			data = correlation
		}

		carrier.SetAdditionalData(data)
	}

	return nil
}

// publishAll calls every Publisher once with the whole batch and joins their errors.
func (d *Dispatcher) publishAll(ctx context.Context, batch Batch) error {
	var publishErrs []error

	for _, publisher := range d.publishers {
		name := fmt.Sprintf(publisherDescriptionPattern, publisher)
		d.logDebug(ctx, logMsgPublisherCalled, logAttrPublisher, name, logAttrEventCount, len(batch))

		if err := publisher.Publish(ctx, batch); err != nil {
			d.logError(ctx, logMsgPublisherFailed, err, logAttrPublisher, name, logAttrEventCount, len(batch))
			publishErrs = append(publishErrs, err)
		}
	}

	if len(publishErrs) > 0 {
		return errors.Join(append([]error{ErrPublishingFailed}, publishErrs...)...)
	}

	return nil
}

// classifyError maps an error to the error type used in metrics and spans.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, ErrMapperNotConfigured):
		return errorTypeUnresolvedToken
	case errors.Is(err, ErrMappingEventFailed), errors.Is(err, ErrMappedEventIsNil):
		return errorTypeMapping
	case errors.Is(err, ErrCommitFailed):
		return errorTypeCommit
	case errors.Is(err, ErrPublishingFailed), errors.Is(err, ErrDispatchFailed):
		return errorTypePublish
	case errors.Is(err, ErrSessionClosed):
		return errorTypeSessionClosed
	default:
		return errorTypeOther
	}
}
