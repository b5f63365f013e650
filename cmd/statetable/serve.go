package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // sqlite driver for database/sql

	"github.com/pjfl/statetable/statetable/endpoint"
)

// Database drivers the serve command accepts.
const (
	driverPGX      = "pgx"
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr         string
	driver       string
	dsn          string
	table        string
	activeColumn string
	path         string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reference data endpoint over a SQL table",
	Long: `Serve answers the table's data requests (paging, sorting, searching,
filtering, distinct filter values, table meta and CSV download) from a SQL table
and stores posted preferences. Columns and the verification token are taken from
--config.

Example:
  statetable serve --config people.yaml --driver sqlite --dsn people.db --table people
  statetable serve --config people.yaml --driver pgx --dsn postgres://localhost/app`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&serveFlags.addr, "addr", ":8080", "listen address")
	flags.StringVar(&serveFlags.driver, "driver", driverSQLite, "database driver: pgx, postgres or sqlite")
	flags.StringVar(&serveFlags.dsn, "dsn", "", "data source name")
	flags.StringVar(&serveFlags.table, "table", "", "SQL table holding the records (default: the table name)")
	flags.StringVar(&serveFlags.activeColumn, "active-column", "", "boolean column hiding inactive records")
	flags.StringVar(&serveFlags.path, "path", "/", "URL path the endpoint is mounted on")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadTableConfig(flagConfig)
	if err != nil {
		return err
	}

	obs, err := newObservability(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	tableName := serveFlags.table
	if tableName == "" {
		tableName = cfg.Name
	}

	options := []endpoint.Option{
		endpoint.WithTableConfig(cfg),
		endpoint.WithTableName(tableName),
		endpoint.WithActiveColumn(serveFlags.activeColumn),
		endpoint.WithContextualLogger(obs.logger),
		endpoint.WithMetrics(obs.metrics),
		endpoint.WithTracing(obs.tracing),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, closeDB, err := openServer(ctx, serveFlags.driver, serveFlags.dsn, options...)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := server.CreatePreferenceTable(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(serveFlags.path, server)

	httpServer := &http.Server{
		Addr:              serveFlags.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		obs.logger.Info("endpoint listening", "addr", serveFlags.addr, "table", tableName, "driver", serveFlags.driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// openServer connects to the database and builds the endpoint on it. The returned func
// closes the connection.
func openServer(ctx context.Context, driver, dsn string, options ...endpoint.Option) (*endpoint.Server, func(), error) {
	if dsn == "" {
		return nil, nil, errors.New("no data source name given, use --dsn")
	}

	switch driver {
	case driverPGX:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}

		server, err := endpoint.NewServerFromPGXPool(pool, options...)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		return server, pool.Close, nil

	case driverPostgres, driverSQLite:
		db, err := sqlx.Open(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}

		dialect := endpoint.DialectPostgres
		if driver == driverSQLite {
			dialect = endpoint.DialectSQLite
			db.SetMaxOpenConns(1)
		}

		server, err := endpoint.NewServerFromSQLX(db, append(options, endpoint.WithDialect(dialect))...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return server, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported --driver %q", driver)
	}
}
