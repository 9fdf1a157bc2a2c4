package postgresuow

import "errors"

var (
	ErrNilDatabaseConnection        = errors.New("database connection must not be nil")
	ErrNilEntity                    = errors.New("entity must not be nil")
	ErrEmptyTableName               = errors.New("entity table name must not be empty")
	ErrEmptyPrimaryKey              = errors.New("entity primary key must not be empty")
	ErrEntityAlreadyTracked         = errors.New("another instance with the same primary key is already tracked")
	ErrBuildingStatementFailed      = errors.New("building sql statement failed")
	ErrBeginningTransactionFailed   = errors.New("beginning transaction failed")
	ErrExecutingStatementFailed     = errors.New("executing sql statement failed")
	ErrCommittingTransactionFailed  = errors.New("committing transaction failed")
	ErrRollingBackTransactionFailed = errors.New("rolling back transaction failed")
)
