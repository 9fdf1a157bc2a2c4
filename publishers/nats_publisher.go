package publishers

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

// NATSConn is the part of nats.Conn the NATSPublisher uses.
type NATSConn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// NATSPublisher publishes every event on the subject prefix plus event name and flushes once per batch,
// so a returned nil means the server has received the whole batch.
type NATSPublisher struct {
	conn          NATSConn
	subjectPrefix string
	now           func() time.Time
}

// NewNATSPublisher creates a NATSPublisher on an open connection.
func NewNATSPublisher(conn NATSConn, subjectPrefix string) (*NATSPublisher, error) {
	if conn == nil {
		return nil, ErrNilTransport
	}

	return &NATSPublisher{conn: conn, subjectPrefix: subjectPrefix, now: time.Now}, nil
}

// Publish implements domainevents.Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, batch domainevents.Batch) error {
	envelopes, err := NewEnvelopes(batch, p.now())
	if err != nil {
		return err
	}

	for _, envelope := range envelopes {
		data, marshalErr := envelope.Marshal()
		if marshalErr != nil {
			return errors.Join(ErrMarshalingPayloadFailed, marshalErr)
		}

		msg := nats.NewMsg(p.subjectPrefix + envelope.EventName)
		msg.Data = data
		msg.Header.Set(nats.MsgIdHdr, envelope.MessageID)
		msg.Header.Set(headerEventName, envelope.EventName)

		if publishErr := p.conn.PublishMsg(msg); publishErr != nil {
			return errors.Join(ErrPublishingFailed, publishErr)
		}
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.Join(ErrPublishingFailed, err)
	}

	return nil
}

// Ensure NATSPublisher implements domainevents.Publisher.
var _ domainevents.Publisher = (*NATSPublisher)(nil)
