// Package adapters lets the data endpoint run its SQL on a pgxpool.Pool, a sql.DB or a sqlx.DB
// through one small interface.
package adapters
