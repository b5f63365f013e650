package adapters

import "context"

// DB runs fully interpolated SQL statements.
type DB interface {
	Query(ctx context.Context, query string) (Rows, error)
	Exec(ctx context.Context, query string) (Result, error)
}

// Rows iterates a query result.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result reports the outcome of a statement.
type Result interface {
	RowsAffected() (int64, error)
}
