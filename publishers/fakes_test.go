package publishers_test

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

type accountOpened struct {
	domainevents.AdditionalData
	Owner string
}

type accountClosed struct {
	Reason string
}

func (accountClosed) EventName() string { return "account.closed" }

func givenCorrelatedEvent(owner string) *accountOpened {
	event := &accountOpened{Owner: owner}
	event.SetAdditionalData(map[string]string{
		domainevents.SourceTypeKey: "bank.Account",
		domainevents.SourceKeysKey: `{"ID":"acc-1"}`,
	})

	return event
}

type kafkaWriterFake struct {
	mu       sync.Mutex
	messages []kafka.Message
	calls    int
	err      error
	closed   bool
}

func (f *kafkaWriterFake) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)

	return nil
}

func (f *kafkaWriterFake) Close() error {
	f.closed = true
	return nil
}

type amqpChannelFake struct {
	exchanges   []string
	routingKeys []string
	messages    []amqp091.Publishing
	failAfter   int
	err         error
}

func (f *amqpChannelFake) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil && len(f.messages) >= f.failAfter {
		return f.err
	}

	f.exchanges = append(f.exchanges, exchange)
	f.routingKeys = append(f.routingKeys, key)
	f.messages = append(f.messages, msg)

	return nil
}

func (f *amqpChannelFake) Close() error { return nil }

type natsConnFake struct {
	messages []*nats.Msg
	flushes  int
	flushErr error
}

func (f *natsConnFake) PublishMsg(msg *nats.Msg) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *natsConnFake) FlushWithContext(_ context.Context) error {
	f.flushes++
	return f.flushErr
}

// redisPipelinerFake queues commands on a pipeline of a client that never connects.
type redisPipelinerFake struct {
	client    *redis.Client
	pipelines int
	queued    int
	err       error
}

func newRedisPipelinerFake() *redisPipelinerFake {
	return &redisPipelinerFake{client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})}
}

func (f *redisPipelinerFake) Pipelined(_ context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	pipe := f.client.Pipeline()
	defer pipe.Discard()

	if err := fn(pipe); err != nil {
		return nil, err
	}

	f.pipelines++
	f.queued += pipe.Len()

	return nil, f.err
}
