// Package postgres implements the storage interfaces of internal/store on
// PostgreSQL through the pgx database/sql driver. Schema migrations are
// embedded and applied with goose.
package postgres
