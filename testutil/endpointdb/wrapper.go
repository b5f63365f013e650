// Package endpointdb opens the reference endpoint over each supported database adapter so
// the same tests can run against SQLite and, when configured, PostgreSQL.
//
// ADAPTER_TYPE selects the adapter: sqlite (default), pgxpool, sqldb or sqlx. The PostgreSQL
// adapters read their DSN from STATETABLE_TEST_DSN and skip the test when it is unset.
package endpointdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/pjfl/statetable/statetable/endpoint"
)

// Adapter types.
const (
	TypeSQLite  = "sqlite"
	TypePGXPool = "pgxpool"
	TypeSQLDB   = "sqldb"
	TypeSQLX    = "sqlx"
)

const (
	envAdapterType = "ADAPTER_TYPE"
	envDSN         = "STATETABLE_TEST_DSN"

	connectTimeout = 5 * time.Second
)

// Wrapper is one endpoint server together with the connection it runs on.
type Wrapper struct {
	Server *endpoint.Server
	Type   string

	exec  func(ctx context.Context, statement string) error
	close func()
}

// Exec runs statements on the wrapped connection.
func (w *Wrapper) Exec(t testing.TB, statements ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	for _, statement := range statements {
		require.NoError(t, w.exec(ctx, statement), "executing %q", statement)
	}
}

// AdapterType returns the adapter selected by ADAPTER_TYPE.
func AdapterType() string {
	if adapter := strings.ToLower(os.Getenv(envAdapterType)); adapter != "" {
		return adapter
	}

	return TypeSQLite
}

// CreateWrapper opens the selected adapter and builds a server with options on it. The
// connection is closed when the test ends.
func CreateWrapper(t testing.TB, options ...endpoint.Option) *Wrapper {
	t.Helper()

	wrapper := createWrapper(t, AdapterType(), options)
	t.Cleanup(wrapper.close)

	return wrapper
}

func createWrapper(t testing.TB, adapter string, options []endpoint.Option) *Wrapper {
	switch adapter {
	case TypeSQLite:
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)

		server, err := endpoint.NewServerFromSQLDB(db, append([]endpoint.Option{endpoint.WithDialect(endpoint.DialectSQLite)}, options...)...)
		require.NoError(t, err)

		return &Wrapper{Server: server, Type: adapter, exec: sqlExec(db), close: func() { _ = db.Close() }}

	case TypePGXPool:
		pool, err := pgxpool.New(context.Background(), dsn(t))
		require.NoError(t, err, "error connecting to DB pool in test setup")

		server, err := endpoint.NewServerFromPGXPool(pool, options...)
		require.NoError(t, err)

		exec := func(ctx context.Context, statement string) error {
			_, err := pool.Exec(ctx, statement)
			return err
		}

		return &Wrapper{Server: server, Type: adapter, exec: exec, close: pool.Close}

	case TypeSQLDB:
		db, err := sql.Open("postgres", dsn(t))
		require.NoError(t, err)

		server, err := endpoint.NewServerFromSQLDB(db, options...)
		require.NoError(t, err)

		return &Wrapper{Server: server, Type: adapter, exec: sqlExec(db), close: func() { _ = db.Close() }}

	case TypeSQLX:
		db, err := sqlx.Open("postgres", dsn(t))
		require.NoError(t, err)

		server, err := endpoint.NewServerFromSQLX(db, options...)
		require.NoError(t, err)

		return &Wrapper{Server: server, Type: adapter, exec: sqlExec(db.DB), close: func() { _ = db.Close() }}

	default:
		panic(fmt.Sprintf("unsupported adapter type from env: %s", adapter))
	}
}

func dsn(t testing.TB) string {
	value := os.Getenv(envDSN)
	if value == "" {
		t.Skipf("%s is not set", envDSN)
	}

	return value
}

func sqlExec(db *sql.DB) func(ctx context.Context, statement string) error {
	return func(ctx context.Context, statement string) error {
		_, err := db.ExecContext(ctx, statement)
		return err
	}
}
