package domainevents_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
)

type resultPublisherStub struct {
	result  domainevents.Result
	batches []domainevents.Batch
}

func (s *resultPublisherStub) Publish(_ context.Context, batch domainevents.Batch) domainevents.Result {
	s.batches = append(s.batches, batch)
	return s.result
}

func Test_EventError_UsesFirstMessage(t *testing.T) {
	err := domainevents.NewEventError(domainevents.Failure("broker unavailable", "second"))

	assert.Equal(t, "broker unavailable", err.Error())
	assert.Equal(t, []string{"broker unavailable", "second"}, err.Result.Errors)
	assert.False(t, err.Result.Succeeded)
}

func Test_EventError_FallsBackWithoutMessages(t *testing.T) {
	err := domainevents.NewEventError(domainevents.Failure())

	assert.NotEmpty(t, err.Error())
}

func Test_FromResultPublisher_Success(t *testing.T) {
	stub := &resultPublisherStub{result: domainevents.Success()}

	err := domainevents.FromResultPublisher(stub).Publish(context.Background(), domainevents.Batch{plainEvent{Value: 1}})

	require.NoError(t, err)
	assert.Len(t, stub.batches, 1)
}

func Test_FromResultPublisher_SoftFailureBecomesEventError(t *testing.T) {
	stub := &resultPublisherStub{result: domainevents.Failure("rejected")}

	err := domainevents.FromResultPublisher(stub).Publish(context.Background(), domainevents.Batch{plainEvent{Value: 1}})

	require.Error(t, err)
	eventErr, ok := domainevents.AsEventError(errors.Join(errors.New("outer"), err))
	require.True(t, ok)
	assert.Equal(t, "rejected", eventErr.Error())
}

func Test_AsEventError_NoMatch(t *testing.T) {
	_, ok := domainevents.AsEventError(errors.New("plain"))

	assert.False(t, ok)
}
