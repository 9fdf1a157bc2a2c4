package domainevents

import (
	"errors"
)

var (
	// ErrNilUnitOfWork is returned when a session is requested for a nil UnitOfWork.
	ErrNilUnitOfWork = errors.New("nil unit of work supplied")

	// ErrNilPublisher is returned when a nil Publisher is registered.
	ErrNilPublisher = errors.New("nil publisher supplied")

	// ErrNilMapper is returned when WithMapper is called with a nil Mapper.
	ErrNilMapper = errors.New("nil mapper supplied")

	// ErrNilStagingBuffer is returned when WithStagingBuffer is called with a nil buffer.
	ErrNilStagingBuffer = errors.New("nil staging buffer supplied")

	// ErrMapperNotConfigured is returned during capture when a type token must be resolved,
	// no Mapper is configured, and the policy is FailOnUnresolvedTypeTokens.
	ErrMapperNotConfigured = errors.New("no mapper configured to resolve event type token")

	// ErrMappingEventFailed is returned when the Mapper fails to build an event from an entity.
	ErrMappingEventFailed = errors.New("mapping event from entity failed")

	// ErrMappedEventIsNil is returned when the Mapper reports success but returns no event.
	ErrMappedEventIsNil = errors.New("mapper returned a nil event")

	// ErrCapturingEventsFailed is returned when the capture phase could not stage events.
	ErrCapturingEventsFailed = errors.New("capturing events failed")

	// ErrCommitFailed is returned when the unit of work fails to commit.
	ErrCommitFailed = errors.New("committing unit of work failed")

	// ErrPublishingFailed is returned when at least one Publisher failed during dispatch.
	ErrPublishingFailed = errors.New("publishing events failed")

	// ErrDispatchFailed is returned by SaveChanges when the commit succeeded but the dispatch afterward did not.
	ErrDispatchFailed = errors.New("dispatching committed events failed")

	// ErrSessionClosed is returned when a closed Session is used.
	ErrSessionClosed = errors.New("session is closed")
)

// Batch is the set of resolved events handed to publishers in one dispatch.
type Batch = []any
