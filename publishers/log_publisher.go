package publishers

import (
	"context"
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

const (
	logMsgEventPublished = "domain event published"
	logAttrMessageID     = "message_id"
	logAttrEventName     = "event_name"
	logAttrSourceType    = "source_type"
	logAttrSourceKeys    = "source_keys"
	logAttrPayload       = "payload"
)

// LogPublisher writes every event as one info log record. It is meant for development and demos.
type LogPublisher struct {
	logger domainevents.Logger
	now    func() time.Time
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger domainevents.Logger) (*LogPublisher, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &LogPublisher{logger: logger, now: time.Now}, nil
}

// Publish implements domainevents.Publisher.
func (p *LogPublisher) Publish(_ context.Context, batch domainevents.Batch) error {
	envelopes, err := NewEnvelopes(batch, p.now())
	if err != nil {
		return err
	}

	for _, envelope := range envelopes {
		p.logger.Info(logMsgEventPublished,
			logAttrMessageID, envelope.MessageID,
			logAttrEventName, envelope.EventName,
			logAttrSourceType, envelope.SourceType,
			logAttrSourceKeys, envelope.SourceKeys,
			logAttrPayload, string(envelope.Payload))
	}

	return nil
}

// Ensure LogPublisher implements domainevents.Publisher.
var _ domainevents.Publisher = (*LogPublisher)(nil)
