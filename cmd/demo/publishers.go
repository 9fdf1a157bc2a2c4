package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"

	"github.com/AntonStoeckl/uow-domain-events-go/config"
	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/publishers"
)

const natsClientName = "uow-domain-events-demo"

// newPublishers creates a publisher for every enabled section of the configuration.
// The returned closers must be closed even if an error is returned.
func newPublishers(cfg config.AppConfig, obs observability) ([]domainevents.Publisher, []io.Closer, error) {
	var (
		enabled []domainevents.Publisher
		closers []io.Closer
	)

	pc := cfg.Publishers

	if pc.Log {
		publisher, err := publishers.NewLogPublisher(obs.logger)
		if err != nil {
			return enabled, closers, err
		}
		enabled = append(enabled, publisher)
	}

	if len(pc.Kafka.Brokers) > 0 {
		publisher, err := publishers.NewKafkaPublisher(pc.Kafka.Brokers, publishers.WithTopicPrefix(pc.Kafka.TopicPrefix))
		if err != nil {
			return enabled, closers, fmt.Errorf("kafka publisher: %w", err)
		}
		closers = append(closers, publisher)

		if enabled, err = appendWithRetry(enabled, publisher, "kafka", cfg, obs); err != nil {
			return enabled, closers, err
		}
	}

	if pc.AMQP.URL != "" {
		publisher, err := publishers.NewAMQPPublisher(pc.AMQP.URL, pc.AMQP.Exchange)
		if err != nil {
			return enabled, closers, fmt.Errorf("amqp publisher: %w", err)
		}
		closers = append(closers, publisher)

		if enabled, err = appendWithRetry(enabled, publisher, "amqp", cfg, obs); err != nil {
			return enabled, closers, err
		}
	}

	if pc.NATS.URL != "" {
		conn, err := nats.Connect(pc.NATS.URL, nats.Name(natsClientName))
		if err != nil {
			return enabled, closers, fmt.Errorf("nats publisher: %w", errors.Join(publishers.ErrConnectingFailed, err))
		}
		closers = append(closers, closerFunc(func() error { conn.Close(); return nil }))

		publisher, err := publishers.NewNATSPublisher(conn, pc.NATS.SubjectPrefix)
		if err != nil {
			return enabled, closers, fmt.Errorf("nats publisher: %w", err)
		}

		if enabled, err = appendWithRetry(enabled, publisher, "nats", cfg, obs); err != nil {
			return enabled, closers, err
		}
	}

	if pc.Redis.URL != "" {
		client, err := publishers.NewRedisClient(pc.Redis.URL)
		if err != nil {
			return enabled, closers, fmt.Errorf("redis publisher: %w", err)
		}
		closers = append(closers, client)

		publisher, err := publishers.NewRedisStreamPublisher(client, pc.Redis.Stream)
		if err != nil {
			return enabled, closers, fmt.Errorf("redis publisher: %w", err)
		}

		if enabled, err = appendWithRetry(enabled, publisher, "redis", cfg, obs); err != nil {
			return enabled, closers, err
		}
	}

	return enabled, closers, nil
}

// appendWithRetry wraps publisher in a RetryingPublisher unless retries are disabled.
func appendWithRetry(
	enabled []domainevents.Publisher,
	publisher domainevents.Publisher,
	name string,
	cfg config.AppConfig,
	obs observability,
) ([]domainevents.Publisher, error) {

	retry := cfg.Publishers.Retry
	if retry.MaxAttempts < 2 {
		return append(enabled, publisher), nil
	}

	options := []publishers.RetryOption{
		publishers.WithMaxAttempts(retry.MaxAttempts),
		publishers.WithBaseDelay(retry.BaseDelay),
	}

	if obs.metricsCollector != nil {
		options = append(options, publishers.WithRetryMetrics(obs.metricsCollector, name))
	}

	retrying, err := publishers.NewRetryingPublisher(publisher, options...)
	if err != nil {
		return enabled, fmt.Errorf("%s publisher: %w", name, err)
	}

	return append(enabled, retrying), nil
}
