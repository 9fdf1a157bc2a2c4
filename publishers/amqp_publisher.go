package publishers

import (
	"context"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const exchangeKindTopic = "topic"

// AMQPChannel is the part of amqp091.Channel the AMQPPublisher uses.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes every event to a topic exchange with the event name as routing key.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  AMQPChannel
	exchange string
	now      func() time.Time
}

// NewAMQPPublisher dials url, opens a channel and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		return nil, ErrEmptyExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		exchangeKindTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Join(ErrConnectingFailed, err)
	}

	p, _ := NewAMQPPublisherFromChannel(ch, exchange)
	p.conn = conn

	return p, nil
}

// NewAMQPPublisherFromChannel creates an AMQPPublisher on an open channel. The exchange must exist.
func NewAMQPPublisherFromChannel(channel AMQPChannel, exchange string) (*AMQPPublisher, error) {
	if channel == nil {
		return nil, ErrNilTransport
	}

	if exchange == "" {
		return nil, ErrEmptyExchange
	}

	return &AMQPPublisher{channel: channel, exchange: exchange, now: time.Now}, nil
}

// Publish implements domainevents.Publisher. It stops at the first failed publishing.
func (p *AMQPPublisher) Publish(ctx context.Context, batch domainevents.Batch) error {
	envelopes, err := NewEnvelopes(batch, p.now())
	if err != nil {
		return err
	}

	for _, envelope := range envelopes {
		body, marshalErr := envelope.Marshal()
		if marshalErr != nil {
			return errors.Join(ErrMarshalingPayloadFailed, marshalErr)
		}

		publishErr := p.channel.PublishWithContext(
			ctx,
			p.exchange,
			envelope.EventName,
			false,
			false,
			amqp091.Publishing{
				ContentType:  contentTypeJSON,
				DeliveryMode: amqp091.Persistent,
				MessageId:    envelope.MessageID,
				Timestamp:    envelope.OccurredAt,
				Type:         envelope.EventName,
				Headers: amqp091.Table{
					domainevents.SourceTypeKey: envelope.SourceType,
					domainevents.SourceKeysKey: envelope.SourceKeys,
				},
				Body: body,
			},
		)
		if publishErr != nil {
			return errors.Join(ErrPublishingFailed, publishErr)
		}
	}

	return nil
}

// Close closes the channel and, if the publisher dialed it, the connection.
func (p *AMQPPublisher) Close() error {
	channelErr := p.channel.Close()

	if p.conn != nil {
		return errors.Join(channelErr, p.conn.Close())
	}

	return channelErr
}

// Ensure AMQPPublisher implements domainevents.Publisher.
var _ domainevents.Publisher = (*AMQPPublisher)(nil)
