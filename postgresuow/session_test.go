package postgresuow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/testutil/testdoubles"
)

func Test_Session_AddRejectsInvalidEntities(t *testing.T) {
	store, _ := givenStoreWithFakeDB()
	session := store.NewSession()

	var nilCustomer *customerRow

	assert.ErrorIs(t, session.Add(nil), ErrNilEntity)
	assert.ErrorIs(t, session.Add(nilCustomer), ErrNilEntity)
	assert.ErrorIs(t, session.Add(&keylessRow{}), ErrEmptyTableName)
	assert.ErrorIs(t, session.Add(&keylessRow{table: "keyless"}), ErrEmptyPrimaryKey)
	assert.Equal(t, 0, session.Len())
}

func Test_Session_TracksEachInstanceOnceInInsertionOrder(t *testing.T) {
	store, _ := givenStoreWithFakeDB()
	session := store.NewSession()
	first := &customerRow{ID: "c-1"}
	second := &customerRow{ID: "c-2"}

	require.NoError(t, session.Add(first))
	require.NoError(t, session.Add(second))
	require.NoError(t, session.Add(first))

	tracked := session.TrackedEntities()
	require.Len(t, tracked, 2)
	assert.Same(t, first, tracked[0].Entity)
	assert.Same(t, second, tracked[1].Entity)
	assert.Equal(t, domainevents.Key("id", "c-1"), tracked[0].Keys)
}

func Test_Session_RejectsSecondInstanceWithSameKey(t *testing.T) {
	store, _ := givenStoreWithFakeDB()
	session := store.NewSession()

	require.NoError(t, session.Add(&customerRow{ID: "c-1"}))

	assert.ErrorIs(t, session.Add(&customerRow{ID: "c-1"}), ErrEntityAlreadyTracked)
}

func Test_Session_CommitUpsertsAndDeletesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	store, db := givenStoreWithFakeDB()
	session := store.NewSession()
	customer := &customerRow{ID: "c-1", Name: "Ada"}
	tag := &tagRow{CustomerID: "c-1", Tag: "vip"}

	require.NoError(t, session.Add(customer))
	require.NoError(t, session.Add(tag))
	require.NoError(t, session.Remove(tag))

	require.NoError(t, session.Commit(ctx))

	statements := db.statements()
	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], `INSERT INTO "customers"`)
	assert.Contains(t, statements[1], `DELETE FROM "customer_tags"`)
	assert.Equal(t, 1, db.committed)
	assert.Equal(t, 1, session.Len(), "removed entities are forgotten after commit")
}

func Test_Session_RemovedEntitiesStayVisibleUntilCommit(t *testing.T) {
	store, _ := givenStoreWithFakeDB()
	session := store.NewSession()
	customer := &customerRow{ID: "c-1"}

	require.NoError(t, session.Remove(customer))

	assert.Len(t, session.TrackedEntities(), 1)
}

func Test_Session_CommitWithoutEntitiesDoesNotOpenTransaction(t *testing.T) {
	store, db := givenStoreWithFakeDB()
	db.beginErr = errors.New("must not be called")

	require.NoError(t, store.NewSession().Commit(context.Background()))
}

func Test_Session_CommitFailuresRollBackAndKeepTracking(t *testing.T) {
	dbErr := errors.New("unique violation")

	tests := []struct {
		name             string
		arrange          func(db *fakeDB)
		expectedErr      error
		expectedRollback int
	}{
		{
			name:        "begin fails",
			arrange:     func(db *fakeDB) { db.beginErr = dbErr },
			expectedErr: ErrBeginningTransactionFailed,
		},
		{
			name: "second statement fails",
			arrange: func(db *fakeDB) {
				db.execErr = dbErr
				db.failOnExec = 2
			},
			expectedErr:      ErrExecutingStatementFailed,
			expectedRollback: 1,
		},
		{
			name:        "commit fails",
			arrange:     func(db *fakeDB) { db.commitErr = dbErr },
			expectedErr: ErrCommittingTransactionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := testdoubles.NewMetricsCollectorSpy()
			store, db := givenStoreWithFakeDB(WithMetrics(metrics))
			tt.arrange(db)
			session := store.NewSession()
			tag := &tagRow{CustomerID: "c-1", Tag: "vip"}
			require.NoError(t, session.Add(&customerRow{ID: "c-1"}))
			require.NoError(t, session.Remove(tag))

			err := session.Commit(context.Background())

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.ErrorIs(t, err, dbErr)
			assert.Equal(t, tt.expectedRollback, db.rolledBack)
			assert.Empty(t, db.statements())
			assert.Equal(t, 2, session.Len(), "tracking state is untouched by a failed commit")
			assert.Equal(t, 1, metrics.CountCounterRecords(metricErrors))
		})
	}
}

func Test_Session_CommitHonoursCancelledContext(t *testing.T) {
	store, db := givenStoreWithFakeDB()
	session := store.NewSession()
	require.NoError(t, session.Add(&customerRow{ID: "c-1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := session.Commit(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, db.rolledBack)
}

func Test_Session_CommitLogsAndTraces(t *testing.T) {
	logHandler := testdoubles.NewLogHandlerSpy(false)
	tracing := testdoubles.NewTracingCollectorSpy()
	store, _ := givenStoreWithFakeDB(WithLogger(slog.New(logHandler)), WithTracing(tracing))
	session := store.NewSession()
	require.NoError(t, session.Add(&customerRow{ID: "c-1"}))

	require.NoError(t, session.Commit(context.Background()))

	assert.True(t, logHandler.HasLog(slog.LevelDebug, logMsgStatementExecuted+statementUpsert))
	assert.True(t, logHandler.HasLog(slog.LevelInfo, logMsgCommitCompleted))
	span, found := tracing.FindSpan(spanNameCommit)
	require.True(t, found)
	assert.Equal(t, statusSuccess, span.Status)
	assert.Equal(t, "1", span.EndAttributes[spanAttrStatementCount])
}

func Test_Session_FeedsCaptureAndDispatch(t *testing.T) {
	ctx := context.Background()
	store, db := givenStoreWithFakeDB()
	uow := store.NewSession()
	customer := &customerRow{ID: "c-1", Name: "Ada"}
	customer.AddEvent("customer registered")
	require.NoError(t, uow.Add(customer))

	spy := testdoubles.NewPublisherSpy()
	dispatcher, err := domainevents.NewDispatcher(domainevents.WithPublisher(spy))
	require.NoError(t, err)
	session, err := dispatcher.NewSession(uow)
	require.NoError(t, err)

	require.NoError(t, session.SaveChanges(ctx))

	assert.Equal(t, 1, db.committed)
	assert.Equal(t, []any{"customer registered"}, spy.Events())
}
