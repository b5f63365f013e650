package adapters

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SQL runs statements on a database/sql handle.
type SQL struct {
	db interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}
}

// NewSQL wraps db.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// NewSQLX wraps a sqlx handle. sqlx embeds *sql.DB, so both share one implementation.
func NewSQLX(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// Query runs a read statement.
func (s *SQL) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Exec runs a write statement.
func (s *SQL) Exec(ctx context.Context, query string) (Result, error) {
	return s.db.ExecContext(ctx, query)
}
