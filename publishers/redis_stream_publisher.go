package publishers

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	fieldMessageID  = "messageId"
	fieldEventName  = "eventName"
	fieldOccurredAt = "occurredAt"
	fieldSourceType = "sourceType"
	fieldSourceKeys = "sourceKeys"
	fieldPayload    = "payload"
)

// RedisPipeliner is the part of redis.Client the RedisStreamPublisher uses.
type RedisPipeliner interface {
	Pipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisStreamPublisher appends every event of a batch to one Redis stream with XADD, sent in one pipeline.
type RedisStreamPublisher struct {
	client RedisPipeliner
	stream string
	maxLen int64
	now    func() time.Time
}

// RedisStreamOption defines a functional option for configuring RedisStreamPublisher.
type RedisStreamOption func(*RedisStreamPublisher) error

// WithApproximateMaxLen trims the stream to about maxLen entries on every append.
func WithApproximateMaxLen(maxLen int64) RedisStreamOption {
	return func(p *RedisStreamPublisher) error {
		p.maxLen = maxLen
		return nil
	}
}

// NewRedisStreamPublisher creates a RedisStreamPublisher on top of a client.
func NewRedisStreamPublisher(client RedisPipeliner, stream string, options ...RedisStreamOption) (*RedisStreamPublisher, error) {
	if client == nil {
		return nil, ErrNilTransport
	}

	if stream == "" {
		return nil, ErrEmptyStream
	}

	p := &RedisStreamPublisher{client: client, stream: stream, now: time.Now}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// NewRedisClient creates a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	return redis.NewClient(opts), nil
}

// Publish implements domainevents.Publisher.
func (p *RedisStreamPublisher) Publish(ctx context.Context, batch domainevents.Batch) error {
	envelopes, err := NewEnvelopes(batch, p.now())
	if err != nil {
		return err
	}

	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, envelope := range envelopes {
			pipe.XAdd(ctx, p.xAddArgs(envelope))
		}

		return nil
	})
	if err != nil {
		return errors.Join(ErrPublishingFailed, err)
	}

	return nil
}

func (p *RedisStreamPublisher) xAddArgs(envelope Envelope) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: []any{
			fieldMessageID, envelope.MessageID,
			fieldEventName, envelope.EventName,
			fieldOccurredAt, envelope.OccurredAt.Format(time.RFC3339Nano),
			fieldSourceType, envelope.SourceType,
			fieldSourceKeys, envelope.SourceKeys,
			fieldPayload, string(envelope.Payload),
		},
	}

	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	return args
}

// Ensure RedisStreamPublisher implements domainevents.Publisher.
var _ domainevents.Publisher = (*RedisStreamPublisher)(nil)
