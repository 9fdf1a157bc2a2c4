package publishers

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	headerMessageID  = "message-id"
	headerEventName  = "event-name"
	headerSourceType = "source-type"
)

// KafkaMessageWriter is the part of kafka.Writer the KafkaPublisher uses.
type KafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes a batch to Kafka in one WriteMessages call.
// The topic is the topic prefix plus the event name unless an override is configured for the event.
// The message key is the envelope partition key, so the events of one entity stay in order.
type KafkaPublisher struct {
	writer       KafkaMessageWriter
	topicPrefix  string
	topicByEvent map[string]string
	now          func() time.Time
}

// KafkaOption defines a functional option for configuring KafkaPublisher.
type KafkaOption func(*KafkaPublisher) error

// WithTopicPrefix prefixes the event name to build the topic.
func WithTopicPrefix(prefix string) KafkaOption {
	return func(p *KafkaPublisher) error {
		p.topicPrefix = prefix
		return nil
	}
}

// WithTopicForEvent routes one event name to a fixed topic.
func WithTopicForEvent(eventName, topic string) KafkaOption {
	return func(p *KafkaPublisher) error {
		if eventName == "" || topic == "" {
			return ErrEmptyTopicOverride
		}

		p.topicByEvent[eventName] = topic

		return nil
	}
}

// NewKafkaPublisher creates a KafkaPublisher with a kafka.Writer that waits for all in-sync replicas.
func NewKafkaPublisher(brokers []string, options ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	return NewKafkaPublisherFromWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}, options...)
}

// NewKafkaPublisherFromWriter creates a KafkaPublisher on top of an existing writer.
// The writer must not have a Topic set, since every message carries its own.
func NewKafkaPublisherFromWriter(writer KafkaMessageWriter, options ...KafkaOption) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, ErrNilTransport
	}

	p := &KafkaPublisher{
		writer:       writer,
		topicByEvent: make(map[string]string),
		now:          time.Now,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Publish implements domainevents.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, batch domainevents.Batch) error {
	envelopes, err := NewEnvelopes(batch, p.now())
	if err != nil {
		return err
	}

	messages := make([]kafka.Message, 0, len(envelopes))
	for _, envelope := range envelopes {
		value, marshalErr := envelope.Marshal()
		if marshalErr != nil {
			return errors.Join(ErrMarshalingPayloadFailed, marshalErr)
		}

		messages = append(messages, kafka.Message{
			Topic: p.topicFor(envelope.EventName),
			Key:   []byte(envelope.PartitionKey()),
			Value: value,
			Time:  envelope.OccurredAt,
			Headers: []kafka.Header{
				{Key: headerMessageID, Value: []byte(envelope.MessageID)},
				{Key: headerEventName, Value: []byte(envelope.EventName)},
				{Key: headerSourceType, Value: []byte(envelope.SourceType)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return errors.Join(ErrPublishingFailed, err)
	}

	return nil
}

func (p *KafkaPublisher) topicFor(eventName string) string {
	if topic, ok := p.topicByEvent[eventName]; ok {
		return topic
	}

	return p.topicPrefix + eventName
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Ensure KafkaPublisher implements domainevents.Publisher.
var _ domainevents.Publisher = (*KafkaPublisher)(nil)
