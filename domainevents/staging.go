package domainevents

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// StagingBuffer holds captured events until they are dispatched.
//
// All mutations happen inside a critical section guarded by a semaphore of weight one.
// A cancelled context is honoured while waiting for the critical section, never inside it,
// so the buffer is never left half-mutated.
type StagingBuffer struct {
	sem    *semaphore.Weighted
	events Batch
}

// NewStagingBuffer creates an empty StagingBuffer.
func NewStagingBuffer() *StagingBuffer {
	return &StagingBuffer{sem: semaphore.NewWeighted(1)}
}

// Stage runs produce inside the critical section and appends its events if it succeeds.
// It returns the number of staged events.
func (b *StagingBuffer) Stage(ctx context.Context, produce func() (Batch, error)) (int, error) {
	if err := b.acquire(ctx); err != nil {
		return 0, err
	}
	defer b.sem.Release(1)

	events, err := produce()
	if err != nil {
		return 0, err
	}

	b.events = append(b.events, events...)

	return len(events), nil
}

// Append stages the given events.
func (b *StagingBuffer) Append(ctx context.Context, events ...any) error {
	_, err := b.Stage(ctx, func() (Batch, error) {
		return events, nil
	})

	return err
}

// Flush hands the whole staged batch to deliver and clears the buffer.
// deliver is not called for an empty buffer. The buffer is cleared before deliver runs,
// so a failing or panicking deliver cannot cause the batch to be delivered again.
// It returns the size of the flushed batch.
func (b *StagingBuffer) Flush(ctx context.Context, deliver func(ctx context.Context, batch Batch) error) (int, error) {
	if err := b.acquire(ctx); err != nil {
		return 0, err
	}
	defer b.sem.Release(1)

	batch := b.events
	b.events = nil

	if len(batch) == 0 {
		return 0, nil
	}

	return len(batch), deliver(ctx, batch)
}

// Discard drops all staged events and returns how many were dropped.
func (b *StagingBuffer) Discard(ctx context.Context) (int, error) {
	if err := b.acquire(ctx); err != nil {
		return 0, err
	}
	defer b.sem.Release(1)

	dropped := len(b.events)
	b.events = nil

	return dropped, nil
}

// Len returns the number of staged events. It waits for any running critical section.
func (b *StagingBuffer) Len() int {
	_ = b.sem.Acquire(context.Background(), 1)
	defer b.sem.Release(1)

	return len(b.events)
}

// Snapshot returns a copy of the staged events. It waits for any running critical section.
func (b *StagingBuffer) Snapshot() Batch {
	_ = b.sem.Acquire(context.Background(), 1)
	defer b.sem.Release(1)

	snapshot := make(Batch, len(b.events))
	copy(snapshot, b.events)

	return snapshot
}

func (b *StagingBuffer) acquire(ctx context.Context) error {
	// semaphore.Acquire may succeed on an already cancelled context, check first.
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.sem.Acquire(ctx, 1)
}
