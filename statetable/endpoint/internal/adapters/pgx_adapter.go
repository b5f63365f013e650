package adapters

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGX runs statements on a pgx pool. Reads go to the replica when one is set.
type PGX struct {
	pool    *pgxpool.Pool
	replica *pgxpool.Pool
}

// NewPGX wraps pool.
func NewPGX(pool *pgxpool.Pool) *PGX {
	return &PGX{pool: pool}
}

// NewPGXWithReplica wraps a primary pool for writes and a replica pool for reads.
func NewPGXWithReplica(pool, replica *pgxpool.Pool) *PGX {
	return &PGX{pool: pool, replica: replica}
}

// Query runs a read statement.
func (p *PGX) Query(ctx context.Context, query string) (Rows, error) {
	pool := p.pool
	if p.replica != nil {
		pool = p.replica
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Exec runs a write statement on the primary pool.
func (p *PGX) Exec(ctx context.Context, query string) (Result, error) {
	tag, err := p.pool.Exec(ctx, query)
	if err != nil {
		return nil, err
	}

	return pgxResult{tag: tag}, nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}

type pgxResult struct {
	tag pgconn.CommandTag
}

func (r pgxResult) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}
