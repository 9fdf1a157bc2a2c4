package publishers

import "errors"

var (
	ErrNilLogger          = errors.New("logger must not be nil")
	ErrNoBrokers          = errors.New("at least one kafka broker is required")
	ErrNilTransport       = errors.New("transport must not be nil")
	ErrEmptyExchange      = errors.New("amqp exchange must not be empty")
	ErrEmptyStream        = errors.New("redis stream must not be empty")
	ErrPublishingFailed   = errors.New("publishing to transport failed")
	ErrConnectingFailed   = errors.New("connecting to transport failed")
	ErrEmptyTopicOverride = errors.New("topic override must name an event and a topic")

	ErrNilPublisher        = errors.New("publisher must not be nil")
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
	ErrEmptyPublisherName  = errors.New("publisher name must not be empty")
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)
