// Package config provides PostgreSQL connection factories and the YAML configuration of the demo service.
//
// The factories create connections for every driver the postgresuow Store supports
// (pgx.Pool, sql.DB, sqlx.DB) with pool settings tuned for a small service.
package config
