package publishers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 50 * time.Millisecond
	defaultJitterFactor = 0.3

	metricRetries           = "publishers_retries_total"
	metricRetryDelay        = "publishers_retry_delay_seconds"
	metricMaxRetriesReached = "publishers_max_retries_reached_total"
	labelPublisher          = "publisher"
	labelAttempt            = "attempt_number"
	labelErrorType          = "error_type"
)

// RetryingPublisher republishes a failed batch with exponential backoff.
//
// A retried batch can reach the transport twice, e.g. when the AMQPPublisher failed halfway,
// so consumers must tolerate duplicates. Envelope message ids are regenerated per attempt.
type RetryingPublisher struct {
	next             domainevents.Publisher
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	retryIf          func(err error) bool
	metricsCollector domainevents.MetricsCollector
	publisherName    string
}

// RetryOption configures a RetryingPublisher.
type RetryOption func(*RetryingPublisher) error

// WithMaxAttempts sets the number of attempts including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(p *RetryingPublisher) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		p.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(p *RetryingPublisher) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		p.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter as a fraction of the backoff delay, between 0.0 and 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(p *RetryingPublisher) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		p.jitterFactor = factor

		return nil
	}
}

// WithRetryIf replaces the default retry predicate, which is isRetryableError.
func WithRetryIf(retryIf func(err error) bool) RetryOption {
	return func(p *RetryingPublisher) error {
		if retryIf != nil {
			p.retryIf = retryIf
		}

		return nil
	}
}

// WithRetryMetrics records retries under the given publisher name.
func WithRetryMetrics(collector domainevents.MetricsCollector, publisherName string) RetryOption {
	return func(p *RetryingPublisher) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if publisherName == "" {
			return ErrEmptyPublisherName
		}

		p.metricsCollector = collector
		p.publisherName = publisherName

		return nil
	}
}

// NewRetryingPublisher wraps next.
func NewRetryingPublisher(next domainevents.Publisher, options ...RetryOption) (*RetryingPublisher, error) {
	if next == nil {
		return nil, ErrNilPublisher
	}

	p := &RetryingPublisher{
		next:         next,
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		retryIf:      isRetryableError,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Publish implements domainevents.Publisher.
func (p *RetryingPublisher) Publish(ctx context.Context, batch domainevents.Batch) error {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * p.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			p.recordDuration(ctx, metricRetryDelay, backoffDelay, map[string]string{
				labelPublisher: p.publisherName,
				labelAttempt:   fmt.Sprintf("%d", attempt),
			})

			timer := time.NewTimer(backoffDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			}
		}

		lastErr = p.next.Publish(ctx, batch)
		if lastErr == nil {
			return nil
		}

		if !p.retryIf(lastErr) {
			return lastErr
		}

		if attempt < p.maxAttempts-1 {
			p.incrementCounter(ctx, metricRetries, map[string]string{
				labelPublisher: p.publisherName,
				labelAttempt:   fmt.Sprintf("%d", attempt+1),
				labelErrorType: errorTypeOf(lastErr),
			})
		}
	}

	p.incrementCounter(ctx, metricMaxRetriesReached, map[string]string{
		labelPublisher: p.publisherName,
		labelErrorType: errorTypeOf(lastErr),
	})

	return lastErr
}

// isRetryableError retries transport failures. Cancellation, timeouts and payloads that
// cannot be encoded fail fast.
func isRetryableError(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrMarshalingPayloadFailed), errors.Is(err, ErrNilEvent):
		return false
	default:
		return true
	}
}

func errorTypeOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConnectingFailed):
		return "connecting_failed"
	case errors.Is(err, ErrPublishingFailed):
		return "publishing_failed"
	default:
		return "other"
	}
}

func (p *RetryingPublisher) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if p.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := p.metricsCollector.(domainevents.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	p.metricsCollector.RecordDuration(metric, d, labels)
}

func (p *RetryingPublisher) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if p.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := p.metricsCollector.(domainevents.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	p.metricsCollector.IncrementCounter(metric, labels)
}

var _ domainevents.Publisher = (*RetryingPublisher)(nil)
