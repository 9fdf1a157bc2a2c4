package postgresuow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow/internal/adapters"
)

const (
	logMsgStatementExecuted  = "executed sql for: "
	logMsgCommitCompleted    = "commit completed"
	logMsgNothingToCommit    = "nothing to commit"
	logMsgBuildStatement     = "failed to build sql statement"
	logMsgBeginFailed        = "failed to begin transaction"
	logMsgExecFailed         = "database execution failed during commit"
	logMsgCommitFailed       = "failed to commit transaction"
	logMsgRollbackFailed     = "failed to roll back transaction"
	logMsgOperation          = "postgresuow operation: "
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrTable             = "table"
	logAttrDurationMS        = "duration_ms"
	logAttrStatementCount    = "statement_count"
	logAttrUpsertCount       = "upsert_count"
	logAttrDeleteCount       = "delete_count"
	logAttrRowsAffected      = "rows_affected"
	logActionCommit          = "commit"
	errorTypeBuild           = "build_error"
	errorTypeBegin           = "begin_error"
	errorTypeExec            = "exec_error"
	errorTypeCommit          = "commit_error"
	errorTypeCanceled        = "canceled"
	metricCommitDuration     = "postgresuow_commit_duration_seconds"
	metricStatementsExecuted = "postgresuow_statements_executed"
	metricErrors             = "postgresuow_errors_total"
	spanNameCommit           = "postgresuow.commit"
)

// Session is a unit of work: it tracks added and removed entities and persists them in one transaction.
// It implements domainevents.UnitOfWork.
type Session struct {
	store   *Store
	mu      sync.Mutex
	entries []*trackedEntry
}

// Add tracks the entity. Adding the same instance twice is a no-op; adding a removed instance tracks it again.
func (s *Session) Add(entity Entity) error {
	return s.track(entity, stateTracked)
}

// Remove marks the entity for deletion. The entity stays in TrackedEntities until the next successful Commit,
// so the events it recorded are still captured.
func (s *Session) Remove(entity Entity) error {
	return s.track(entity, stateRemoved)
}

func (s *Session) track(entity Entity, state entityState) error {
	identity, err := identityOf(entity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.identity != identity {
			continue
		}

		if !sameInstance(entry.entity, entity) {
			return ErrEntityAlreadyTracked
		}

		entry.state = state

		return nil
	}

	s.entries = append(s.entries, &trackedEntry{entity: entity, identity: identity, state: state})

	return nil
}

// TrackedEntities returns a snapshot of all tracked entities in the order they were first added.
func (s *Session) TrackedEntities() []domainevents.TrackedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]domainevents.TrackedEntity, 0, len(s.entries))
	for _, entry := range s.entries {
		snapshot = append(snapshot, domainevents.TrackedEntity{
			Entity: entry.entity,
			Keys:   entry.entity.PrimaryKey(),
		})
	}

	return snapshot
}

// Commit writes all tracked entities in one transaction. Any failure rolls the transaction back
// and leaves the tracking state untouched. After a successful commit removed entities are no longer tracked.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store
	ctx, span := st.startSpan(ctx)
	start := time.Now()

	statements, err := s.buildStatements()
	if err != nil {
		st.logError(ctx, logMsgBuildStatement, err)
		return st.fail(ctx, span, errorTypeBuild, start, errors.Join(ErrBuildingStatementFailed, err))
	}

	if len(statements) == 0 {
		st.logDebug(ctx, logMsgNothingToCommit)
		st.finishSpanSuccess(span, 0, time.Since(start))

		return nil
	}

	tx, err := st.db.BeginTx(ctx)
	if err != nil {
		st.logError(ctx, logMsgBeginFailed, err)
		return st.fail(ctx, span, errorTypeBegin, start, errors.Join(ErrBeginningTransactionFailed, err))
	}

	if err := st.execAll(ctx, tx, statements); err != nil {
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil {
			st.logWarn(ctx, logMsgRollbackFailed, logAttrError, rollbackErr.Error())
			err = errors.Join(err, ErrRollingBackTransactionFailed, rollbackErr)
		}

		return st.fail(ctx, span, classifyError(err, errorTypeExec), start, err)
	}

	if err := tx.Commit(ctx); err != nil {
		st.logError(ctx, logMsgCommitFailed, err)
		return st.fail(ctx, span, classifyError(err, errorTypeCommit), start, errors.Join(ErrCommittingTransactionFailed, err))
	}

	upserts, deletes := s.forgetRemoved()
	duration := time.Since(start)

	st.logOperation(ctx, logMsgCommitCompleted,
		logAttrStatementCount, len(statements),
		logAttrUpsertCount, upserts,
		logAttrDeleteCount, deletes,
		logAttrDurationMS, toMilliseconds(duration))
	st.recordDuration(ctx, metricCommitDuration, duration, statusSuccess)
	st.recordValue(ctx, metricStatementsExecuted, float64(len(statements)))
	st.finishSpanSuccess(span, len(statements), duration)

	return nil
}

// Len returns the number of tracked entities, removed ones included.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Session) buildStatements() ([]statement, error) {
	statements := make([]statement, 0, len(s.entries))

	for _, entry := range s.entries {
		var stmt statement
		var err error

		switch entry.state {
		case stateRemoved:
			stmt, err = buildDeleteStatement(entry.entity)
		default:
			stmt, err = buildUpsertStatement(entry.entity)
		}

		if err != nil {
			return nil, err
		}

		statements = append(statements, stmt)
	}

	return statements, nil
}

// forgetRemoved drops removed entries and returns the number of upserted and deleted entities.
func (s *Session) forgetRemoved() (int, int) {
	kept := s.entries[:0]
	deletes := 0

	for _, entry := range s.entries {
		if entry.state == stateRemoved {
			deletes++
			continue
		}

		kept = append(kept, entry)
	}

	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept

	return len(kept), deletes
}

func (st *Store) execAll(ctx context.Context, tx adapters.DBTx, statements []statement) error {
	for _, stmt := range statements {
		start := time.Now()
		result, err := tx.Exec(ctx, stmt.sql)
		duration := time.Since(start)

		if err != nil {
			st.logError(ctx, logMsgExecFailed, err, logAttrQuery, stmt.sql, logAttrTable, stmt.table)
			return errors.Join(ErrExecutingStatementFailed, err)
		}

		var rowsAffected int64
		if result != nil {
			rowsAffected, _ = result.RowsAffected()
		}

		st.logDebug(ctx, logMsgStatementExecuted+stmt.action,
			logAttrQuery, stmt.sql,
			logAttrTable, stmt.table,
			logAttrRowsAffected, rowsAffected,
			logAttrDurationMS, toMilliseconds(duration))
	}

	return nil
}

// Ensure Session implements domainevents.UnitOfWork.
var _ domainevents.UnitOfWork = (*Session)(nil)
