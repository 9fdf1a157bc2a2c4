package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

// PublisherSpy is a Publisher that records the batches it receives.
type PublisherSpy struct {
	mu      sync.Mutex
	batches []domainevents.Batch
	failure error
	gate    chan struct{}
	entered chan struct{}
}

// NewPublisherSpy creates a PublisherSpy that accepts every batch.
func NewPublisherSpy() *PublisherSpy {
	return &PublisherSpy{}
}

// NewFailingPublisherSpy creates a PublisherSpy that records every batch and then returns err.
func NewFailingPublisherSpy(err error) *PublisherSpy {
	return &PublisherSpy{failure: err}
}

// NewBlockingPublisherSpy creates a PublisherSpy that signals on Entered and then waits until Release is called.
func NewBlockingPublisherSpy() *PublisherSpy {
	return &PublisherSpy{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
}

// Publish implements the domainevents.Publisher interface for testing.
func (s *PublisherSpy) Publish(_ context.Context, batch domainevents.Batch) error {
	s.mu.Lock()
	batchCopy := make(domainevents.Batch, len(batch))
	copy(batchCopy, batch)
	s.batches = append(s.batches, batchCopy)
	s.mu.Unlock()

	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}

	return s.failure
}

// Entered is signalled each time a blocking spy starts publishing.
func (s *PublisherSpy) Entered() <-chan struct{} {
	return s.entered
}

// Release unblocks all current and future Publish calls of a blocking spy.
func (s *PublisherSpy) Release() {
	if s.gate != nil {
		close(s.gate)
	}
}

// CallCount returns the number of Publish calls.
func (s *PublisherSpy) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.batches)
}

// Batches returns all recorded batches.
func (s *PublisherSpy) Batches() []domainevents.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches := make([]domainevents.Batch, len(s.batches))
	copy(batches, s.batches)

	return batches
}

// Events returns all recorded events of all batches in publishing order.
func (s *PublisherSpy) Events() []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]any, 0)
	for _, batch := range s.batches {
		events = append(events, batch...)
	}

	return events
}

// Reset clears all recorded batches.
func (s *PublisherSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches = nil
}

// Ensure PublisherSpy implements domainevents.Publisher.
var _ domainevents.Publisher = (*PublisherSpy)(nil)
