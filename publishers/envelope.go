package publishers

import (
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

var (
	ErrNilEvent                = errors.New("event must not be nil")
	ErrMarshalingPayloadFailed = errors.New("marshaling event payload failed")
	ErrGeneratingIDFailed      = errors.New("generating message id failed")
)

const contentTypeJSON = "application/json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NamedEvent lets an event choose its published name. Other events are named after their Go type.
type NamedEvent interface {
	EventName() string
}

// Envelope is the wire format of one published event.
type Envelope struct {
	MessageID  string              `json:"messageId"`
	EventName  string              `json:"eventName"`
	OccurredAt time.Time           `json:"occurredAt"`
	SourceType string              `json:"sourceType,omitempty"`
	SourceKeys string              `json:"sourceKeys,omitempty"`
	Payload    jsoniter.RawMessage `json:"payload"`
}

// NewEnvelope wraps event. Correlation data is copied when the event carries it.
func NewEnvelope(event any, occurredAt time.Time) (Envelope, error) {
	if event == nil {
		return Envelope{}, ErrNilEvent
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, errors.Join(ErrGeneratingIDFailed, err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, errors.Join(ErrMarshalingPayloadFailed, err)
	}

	envelope := Envelope{
		MessageID:  id.String(),
		EventName:  EventNameOf(event),
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	}

	if carrier, ok := event.(domainevents.AdditionalDataCarrier); ok {
		if data, found := carrier.TryGetAdditionalData(); found {
			envelope.SourceType = data[domainevents.SourceTypeKey]
			envelope.SourceKeys = data[domainevents.SourceKeysKey]
		}
	}

	return envelope, nil
}

// NewEnvelopes wraps every event of the batch with the same occurredAt.
func NewEnvelopes(batch domainevents.Batch, occurredAt time.Time) ([]Envelope, error) {
	envelopes := make([]Envelope, 0, len(batch))

	for _, event := range batch {
		envelope, err := NewEnvelope(event, occurredAt)
		if err != nil {
			return nil, err
		}

		envelopes = append(envelopes, envelope)
	}

	return envelopes, nil
}

// EventNameOf returns the published name of event.
func EventNameOf(event any) string {
	if named, ok := event.(NamedEvent); ok {
		return named.EventName()
	}

	t := reflect.TypeOf(event)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil {
		return ""
	}

	if t.Name() == "" {
		return t.String()
	}

	return t.Name()
}

// Marshal renders the envelope as JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps events of one entity together: source type and keys if present, else the message id.
func (e Envelope) PartitionKey() string {
	if e.SourceKeys != "" {
		return e.SourceType + e.SourceKeys
	}

	return e.MessageID
}
