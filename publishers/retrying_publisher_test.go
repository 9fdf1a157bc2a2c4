package publishers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/publishers"
	"github.com/AntonStoeckl/uow-domain-events-go/testutil/testdoubles"
)

// failingTimes fails the first n calls with err.
func failingTimes(n int, err error) (domainevents.PublisherFunc, *int) {
	calls := 0

	return func(_ context.Context, _ domainevents.Batch) error {
		calls++
		if calls <= n {
			return err
		}

		return nil
	}, &calls
}

func fastRetries(extra ...publishers.RetryOption) []publishers.RetryOption {
	return append([]publishers.RetryOption{
		publishers.WithBaseDelay(time.Millisecond),
		publishers.WithJitterFactor(0),
	}, extra...)
}

func Test_RetryingPublisher_SucceedsWithoutRetries(t *testing.T) {
	next, calls := failingTimes(0, nil)
	publisher, err := publishers.NewRetryingPublisher(next, fastRetries()...)
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), domainevents.Batch{accountClosed{}}))

	assert.Equal(t, 1, *calls)
}

func Test_RetryingPublisher_RetriesTransportFailures(t *testing.T) {
	next, calls := failingTimes(2, publishers.ErrPublishingFailed)
	metrics := testdoubles.NewMetricsCollectorSpy()
	publisher, err := publishers.NewRetryingPublisher(next,
		fastRetries(publishers.WithRetryMetrics(metrics, "kafka"))...)
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), domainevents.Batch{accountClosed{}}))

	assert.Equal(t, 3, *calls)
	assert.Equal(t, 2, metrics.CountCounterRecords("publishers_retries_total"))
	assert.True(t, metrics.HasDurationRecord("publishers_retry_delay_seconds"))
	assert.Equal(t, 0, metrics.CountCounterRecords("publishers_max_retries_reached_total"))
}

func Test_RetryingPublisher_GivesUpAfterMaxAttempts(t *testing.T) {
	next, calls := failingTimes(10, publishers.ErrConnectingFailed)
	metrics := testdoubles.NewMetricsCollectorSpy()
	publisher, err := publishers.NewRetryingPublisher(next,
		fastRetries(publishers.WithMaxAttempts(3), publishers.WithRetryMetrics(metrics, "amqp"))...)
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), domainevents.Batch{accountClosed{}})

	assert.ErrorIs(t, err, publishers.ErrConnectingFailed)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 2, metrics.CountCounterRecords("publishers_retries_total"))
	assert.Equal(t, 1, metrics.CountCounterRecords("publishers_max_retries_reached_total"))
}

func Test_RetryingPublisher_FailsFastOnPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unencodable payload", err: publishers.ErrMarshalingPayloadFailed},
		{name: "nil event", err: publishers.ErrNilEvent},
		{name: "deadline", err: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, calls := failingTimes(10, tt.err)
			publisher, err := publishers.NewRetryingPublisher(next, fastRetries()...)
			require.NoError(t, err)

			err = publisher.Publish(context.Background(), domainevents.Batch{accountClosed{}})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, *calls)
		})
	}
}

func Test_RetryingPublisher_CustomPredicate(t *testing.T) {
	permanent := errors.New("schema rejected")
	next, calls := failingTimes(10, permanent)
	publisher, err := publishers.NewRetryingPublisher(next, fastRetries(
		publishers.WithRetryIf(func(err error) bool { return !errors.Is(err, permanent) }),
	)...)
	require.NoError(t, err)

	assert.ErrorIs(t, publisher.Publish(context.Background(), domainevents.Batch{accountClosed{}}), permanent)
	assert.Equal(t, 1, *calls)
}

func Test_RetryingPublisher_StopsWaitingWhenContextIsCancelled(t *testing.T) {
	next, calls := failingTimes(10, publishers.ErrPublishingFailed)
	publisher, err := publishers.NewRetryingPublisher(next, publishers.WithBaseDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = publisher.Publish(ctx, domainevents.Batch{accountClosed{}})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, publishers.ErrPublishingFailed)
	assert.Equal(t, 1, *calls)
}

func Test_NewRetryingPublisher_RejectsInvalidOptions(t *testing.T) {
	next, _ := failingTimes(0, nil)

	tests := []struct {
		name        string
		next        domainevents.Publisher
		option      publishers.RetryOption
		expectedErr error
	}{
		{name: "nil publisher", next: nil, option: publishers.WithMaxAttempts(1), expectedErr: publishers.ErrNilPublisher},
		{name: "zero attempts", next: next, option: publishers.WithMaxAttempts(0), expectedErr: publishers.ErrInvalidMaxAttempts},
		{name: "negative delay", next: next, option: publishers.WithBaseDelay(-time.Second), expectedErr: publishers.ErrNegativeBaseDelay},
		{name: "jitter above one", next: next, option: publishers.WithJitterFactor(1.5), expectedErr: publishers.ErrInvalidJitterFactor},
		{name: "nil collector", next: next, option: publishers.WithRetryMetrics(nil, "kafka"), expectedErr: publishers.ErrNilMetricsCollector},
		{name: "empty name", next: next, option: publishers.WithRetryMetrics(testdoubles.NewMetricsCollectorSpy(), ""), expectedErr: publishers.ErrEmptyPublisherName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := publishers.NewRetryingPublisher(tt.next, tt.option)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
