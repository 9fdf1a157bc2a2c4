package adapters

import "context"

// DBAdapter begins transactions on the underlying connection pool.
type DBAdapter interface {
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is one open transaction.
type DBTx interface {
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
