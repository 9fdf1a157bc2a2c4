package domainevents

import (
	"context"
	"errors"
)

// Publisher receives every dispatched batch and delivers it onward.
// Each registered Publisher is called once per batch with the whole batch.
type Publisher interface {
	Publish(ctx context.Context, batch Batch) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, batch Batch) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

// ResultPublisher is a publisher that reports soft failures through a Result instead of an error.
type ResultPublisher interface {
	Publish(ctx context.Context, batch Batch) Result
}

// FromResultPublisher adapts a ResultPublisher to Publisher. A failed Result is returned as *EventError.
func FromResultPublisher(rp ResultPublisher) Publisher {
	return PublisherFunc(func(ctx context.Context, batch Batch) error {
		result := rp.Publish(ctx, batch)
		if result.Succeeded {
			return nil
		}

		return NewEventError(result)
	})
}

// Result carries the outcome of an operation that can fail softly.
type Result struct {
	Succeeded bool
	Errors    []string
}

// Success returns a succeeded Result.
func Success() Result {
	return Result{Succeeded: true}
}

// Failure returns a failed Result with the given messages.
func Failure(messages ...string) Result {
	return Result{Succeeded: false, Errors: messages}
}

// EventError wraps a failed Result. Its message is the first error message of the Result.
type EventError struct {
	Result Result
}

const eventErrorFallbackMessage = "event publishing reported a failure"

// NewEventError creates an EventError for the given Result.
func NewEventError(result Result) *EventError {
	return &EventError{Result: result}
}

func (e *EventError) Error() string {
	if len(e.Result.Errors) == 0 || e.Result.Errors[0] == "" {
		return eventErrorFallbackMessage
	}

	return e.Result.Errors[0]
}

// AsEventError returns the first *EventError in err's tree.
func AsEventError(err error) (*EventError, bool) {
	var eventErr *EventError
	if errors.As(err, &eventErr) {
		return eventErr, true
	}

	return nil, false
}
