// Package adapters provide transactional database adapters for the PostgreSQL unit of work.
//
// The adapters wrap pgx.Pool, sql.DB and sqlx.DB behind one DBAdapter interface, so the
// unit of work runs its statements in a single transaction regardless of the connection type.
package adapters
