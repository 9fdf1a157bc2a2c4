package publishers_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/publishers"
)

func Test_NewEnvelope_CopiesCorrelationDataAndPayload(t *testing.T) {
	occurredAt := time.Date(2026, 10, 18, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	envelope, err := publishers.NewEnvelope(givenCorrelatedEvent("Ada"), occurredAt)

	require.NoError(t, err)
	id, parseErr := uuid.Parse(envelope.MessageID)
	require.NoError(t, parseErr)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "accountOpened", envelope.EventName)
	assert.Equal(t, time.UTC, envelope.OccurredAt.Location())
	assert.True(t, occurredAt.Equal(envelope.OccurredAt))
	assert.Equal(t, "bank.Account", envelope.SourceType)
	assert.Equal(t, `{"ID":"acc-1"}`, envelope.SourceKeys)
	assert.JSONEq(t, `{"Owner":"Ada"}`, string(envelope.Payload))
	assert.Equal(t, `bank.Account{"ID":"acc-1"}`, envelope.PartitionKey())
}

func Test_NewEnvelope_WithoutCorrelationData(t *testing.T) {
	envelope, err := publishers.NewEnvelope(accountClosed{Reason: "moved"}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, "account.closed", envelope.EventName)
	assert.Empty(t, envelope.SourceType)
	assert.Equal(t, envelope.MessageID, envelope.PartitionKey())
}

func Test_NewEnvelope_RejectsNilEvent(t *testing.T) {
	_, err := publishers.NewEnvelope(nil, time.Now())

	assert.ErrorIs(t, err, publishers.ErrNilEvent)
}

func Test_NewEnvelope_FailsForUnmarshalablePayload(t *testing.T) {
	_, err := publishers.NewEnvelope(map[string]any{"fn": func() {}}, time.Now())

	assert.ErrorIs(t, err, publishers.ErrMarshalingPayloadFailed)
}

func Test_EventNameOf(t *testing.T) {
	assert.Equal(t, "accountOpened", publishers.EventNameOf(&accountOpened{}))
	assert.Equal(t, "account.closed", publishers.EventNameOf(accountClosed{}))
	assert.Equal(t, "string", publishers.EventNameOf("plain"))
	assert.Equal(t, "map[string]int", publishers.EventNameOf(map[string]int{}))
}

func Test_Envelope_MarshalUsesWireFieldNames(t *testing.T) {
	envelope, err := publishers.NewEnvelope(givenCorrelatedEvent("Ada"), time.Now())
	require.NoError(t, err)

	raw, err := envelope.Marshal()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(raw, &decoded))
	assert.Equal(t, envelope.MessageID, decoded["messageId"])
	assert.Equal(t, "accountOpened", decoded["eventName"])
	assert.Equal(t, "bank.Account", decoded["sourceType"])
	assert.Equal(t, map[string]any{"Owner": "Ada"}, decoded["payload"])
}
