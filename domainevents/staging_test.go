package domainevents_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

func Test_StagingBuffer_FlushDeliversWholeBatchAndClears(t *testing.T) {
	ctx := context.Background()
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(ctx, plainEvent{Value: 1}, plainEvent{Value: 2}))
	require.NoError(t, buffer.Append(ctx, plainEvent{Value: 3}))

	var delivered []domainevents.Batch
	flushed, err := buffer.Flush(ctx, func(_ context.Context, batch domainevents.Batch) error {
		delivered = append(delivered, batch)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, flushed)
	require.Len(t, delivered, 1)
	assert.Equal(t, domainevents.Batch{plainEvent{Value: 1}, plainEvent{Value: 2}, plainEvent{Value: 3}}, delivered[0])
	assert.Equal(t, 0, buffer.Len())
}

func Test_StagingBuffer_FlushOfEmptyBufferDoesNotDeliver(t *testing.T) {
	buffer := domainevents.NewStagingBuffer()
	calls := 0

	flushed, err := buffer.Flush(context.Background(), func(_ context.Context, _ domainevents.Batch) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 0, flushed)
	assert.Equal(t, 0, calls)
}

func Test_StagingBuffer_FlushClearsWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(ctx, plainEvent{Value: 1}))
	deliveryErr := errors.New("delivery failed")

	flushed, err := buffer.Flush(ctx, func(_ context.Context, _ domainevents.Batch) error {
		return deliveryErr
	})

	assert.ErrorIs(t, err, deliveryErr)
	assert.Equal(t, 1, flushed)
	assert.Equal(t, 0, buffer.Len())
}

func Test_StagingBuffer_FlushClearsAndReleasesWhenDeliveryPanics(t *testing.T) {
	ctx := context.Background()
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(ctx, plainEvent{Value: 1}))

	assert.Panics(t, func() {
		_, _ = buffer.Flush(ctx, func(_ context.Context, _ domainevents.Batch) error {
			panic("publisher exploded")
		})
	})

	assert.Equal(t, 0, buffer.Len())
	assert.NoError(t, buffer.Append(ctx, plainEvent{Value: 2}), "buffer must be usable after a panic")
}

func Test_StagingBuffer_StageAppendsNothingWhenProduceFails(t *testing.T) {
	ctx := context.Background()
	buffer := domainevents.NewStagingBuffer()
	produceErr := errors.New("produce failed")

	staged, err := buffer.Stage(ctx, func() (domainevents.Batch, error) {
		return domainevents.Batch{plainEvent{Value: 1}}, produceErr
	})

	assert.ErrorIs(t, err, produceErr)
	assert.Equal(t, 0, staged)
	assert.Equal(t, 0, buffer.Len())
}

func Test_StagingBuffer_CancelledContextIsHonouredBeforeTheCriticalSection(t *testing.T) {
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(context.Background(), plainEvent{Value: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	produceCalled := false
	_, stageErr := buffer.Stage(ctx, func() (domainevents.Batch, error) {
		produceCalled = true
		return nil, nil
	})
	_, flushErr := buffer.Flush(ctx, func(_ context.Context, _ domainevents.Batch) error {
		return nil
	})
	_, discardErr := buffer.Discard(ctx)

	assert.ErrorIs(t, stageErr, context.Canceled)
	assert.ErrorIs(t, flushErr, context.Canceled)
	assert.ErrorIs(t, discardErr, context.Canceled)
	assert.False(t, produceCalled)
	assert.Equal(t, 1, buffer.Len())
}

func Test_StagingBuffer_WaitingForTheLockHonoursDeadline(t *testing.T) {
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(context.Background(), plainEvent{Value: 1}))

	entered := make(chan struct{})
	release := make(chan struct{})
	flushDone := make(chan struct{})

	go func() {
		defer close(flushDone)
		_, _ = buffer.Flush(context.Background(), func(_ context.Context, _ domainevents.Batch) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := buffer.Append(ctx, plainEvent{Value: 2})

	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-flushDone
	assert.Equal(t, 0, buffer.Len())
}

func Test_StagingBuffer_SnapshotAndDiscard(t *testing.T) {
	ctx := context.Background()
	buffer := domainevents.NewStagingBuffer()
	require.NoError(t, buffer.Append(ctx, plainEvent{Value: 1}, plainEvent{Value: 2}))

	snapshot := buffer.Snapshot()
	dropped, err := buffer.Discard(ctx)

	require.NoError(t, err)
	assert.Equal(t, domainevents.Batch{plainEvent{Value: 1}, plainEvent{Value: 2}}, snapshot)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 0, buffer.Len())
}
