package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/example/core"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow"
	"github.com/AntonStoeckl/uow-domain-events-go/promadapters"
	"github.com/AntonStoeckl/uow-domain-events-go/testutil/testdoubles"
)

type unitOfWorkStub struct {
	*testdoubles.UnitOfWorkFake
}

func (u unitOfWorkStub) Add(entity postgresuow.Entity) error {
	u.Track(entity, entity.PrimaryKey())
	return nil
}

func givenRouter(t *testing.T, uow *testdoubles.UnitOfWorkFake, publisher domainevents.Publisher) http.Handler {
	t.Helper()

	registry := prometheus.NewRegistry()
	dispatcher, err := domainevents.NewDispatcher(
		domainevents.WithPublisher(publisher),
		domainevents.WithMapper(domainevents.NewJSONMapper()),
		domainevents.WithMetrics(promadapters.NewMetricsCollector(registry)),
	)
	require.NoError(t, err)

	logger := slog.New(testdoubles.NewLogHandlerSpy(false))
	handler := newRootsHandler(func() unitOfWork { return unitOfWorkStub{uow} }, dispatcher, logger)

	return newRouter(handler, registry)
}

func postRoot(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/roots", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func Test_CreateRoot_SavesAndPublishesEvents(t *testing.T) {
	uow := testdoubles.NewUnitOfWorkFake()
	spy := testdoubles.NewPublisherSpy()
	router := givenRouter(t, uow, spy)

	rec := postRoot(router, `{"id":"r-1","name":"P1","children":[{"id":"c-1","name":"A1"}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"r-1","children":["c-1"]}`, rec.Body.String())
	assert.Equal(t, 1, uow.CommitCount())
	require.Len(t, uow.TrackedEntities(), 2)

	events := spy.Events()
	require.Len(t, events, 2)
	assert.IsType(t, &core.RootCreatedEvent{}, events[0])
	assert.Equal(t, "A1", events[1].(*core.EntityAddedEvent).Name)
}

func Test_CreateRoot_GeneratesMissingIDs(t *testing.T) {
	router := givenRouter(t, testdoubles.NewUnitOfWorkFake(), testdoubles.NewPublisherSpy())

	rec := postRoot(router, `{"name":"P1","children":[{"name":"A1"}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var response createRootResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotEmpty(t, response.ID)
	require.Len(t, response.Children, 1)
	assert.NotEmpty(t, response.Children[0])
}

func Test_CreateRoot_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{name: "malformed body", body: `{"name":`, expectedCode: http.StatusBadRequest},
		{name: "missing root name", body: `{"id":"r-1"}`, expectedCode: http.StatusUnprocessableEntity},
		{name: "missing child name", body: `{"name":"P1","children":[{"id":"c-1"}]}`, expectedCode: http.StatusUnprocessableEntity},
		{name: "duplicate child", body: `{"name":"P1","children":[{"id":"c-1","name":"A1"},{"id":"c-1","name":"A2"}]}`, expectedCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testdoubles.NewUnitOfWorkFake()
			spy := testdoubles.NewPublisherSpy()

			rec := postRoot(givenRouter(t, uow, spy), tt.body)

			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, 0, uow.CommitCount())
			assert.Equal(t, 0, spy.CallCount())
		})
	}
}

func Test_CreateRoot_CommitFailureIsAServerError(t *testing.T) {
	uow := testdoubles.NewUnitOfWorkFake().FailCommitWith(errors.New("connection reset"))
	spy := testdoubles.NewPublisherSpy()

	rec := postRoot(givenRouter(t, uow, spy), `{"name":"P1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, spy.CallCount())
}

func Test_CreateRoot_PublishingFailureStillReportsCreated(t *testing.T) {
	uow := testdoubles.NewUnitOfWorkFake()
	failing := testdoubles.NewFailingPublisherSpy(errors.New("broker down"))

	rec := postRoot(givenRouter(t, uow, failing), `{"name":"P1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, uow.CommitCount())
	assert.Equal(t, 1, failing.CallCount())
}

func Test_CreateRoot_RequestCancelledAfterCommitStillReportsCreated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uow := testdoubles.NewUnitOfWorkFake().OnCommit(func(context.Context) error {
		cancel()
		return nil
	})
	spy := testdoubles.NewPublisherSpy()

	req := httptest.NewRequest(http.MethodPost, "/roots", strings.NewReader(`{"name":"P1"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	givenRouter(t, uow, spy).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, uow.CommitCount())
	assert.Equal(t, 0, spy.CallCount())
}

func Test_Router_ExposesHealthAndMetrics(t *testing.T) {
	router := givenRouter(t, testdoubles.NewUnitOfWorkFake(), testdoubles.NewPublisherSpy())
	require.Equal(t, http.StatusCreated, postRoot(router, `{"name":"P1"}`).Code)

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "domainevents_save_duration_seconds")
}
