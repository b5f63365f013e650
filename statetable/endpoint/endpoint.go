package endpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/endpoint/internal/adapters"
)

const (
	defaultTableName           = "records"
	defaultPreferenceTableName = "table_preferences"

	colPreferenceID    = "id"
	colPreferenceTable = "table_name"
	colPreferenceData  = "data"

	timestampLayout = time.RFC3339
)

// Result is one answered data request.
type Result struct {
	Records      []statetable.Record
	TotalRecords int
}

// Server answers data endpoint requests from a SQL table and stores posted preferences.
type Server struct {
	db                  adapters.DB
	name                string
	dialect             string
	tableName           string
	preferenceTableName string
	columns             []statetable.ColumnConfig
	activeColumn        string
	verifyToken         string
	maxPageSize         int

	logger           statetable.Logger
	contextualLogger statetable.ContextualLogger
	metricsCollector statetable.MetricsCollector
	tracingCollector statetable.TracingCollector
}

// NewServerFromPGXPool creates a Server on a pgx pool.
func NewServerFromPGXPool(db *pgxpool.Pool, options ...Option) (*Server, error) {
	if db == nil {
		return nil, statetable.ErrNilDatabaseConnection
	}

	return newServer(adapters.NewPGX(db), options...)
}

// NewServerFromPGXPoolWithReplica creates a Server that reads from replica and writes
// preferences to db.
func NewServerFromPGXPoolWithReplica(db, replica *pgxpool.Pool, options ...Option) (*Server, error) {
	if db == nil || replica == nil {
		return nil, statetable.ErrNilDatabaseConnection
	}

	return newServer(adapters.NewPGXWithReplica(db, replica), options...)
}

// NewServerFromSQLDB creates a Server on a sql.DB.
func NewServerFromSQLDB(db *sql.DB, options ...Option) (*Server, error) {
	if db == nil {
		return nil, statetable.ErrNilDatabaseConnection
	}

	return newServer(adapters.NewSQL(db), options...)
}

// NewServerFromSQLX creates a Server on a sqlx.DB.
func NewServerFromSQLX(db *sqlx.DB, options ...Option) (*Server, error) {
	if db == nil {
		return nil, statetable.ErrNilDatabaseConnection
	}

	return newServer(adapters.NewSQLX(db), options...)
}

func newServer(db adapters.DB, options ...Option) (*Server, error) {
	s := &Server{
		db:                  db,
		dialect:             DialectPostgres,
		tableName:           defaultTableName,
		preferenceTableName: defaultPreferenceTableName,
		maxPageSize:         statetable.DefaultMaxPageSize,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if len(s.columns) == 0 {
		return nil, statetable.ErrNoColumnsConfigured
	}

	if s.name == "" {
		s.name = s.tableName
	}

	return s, nil
}

// Query returns the page of records query asks for and the number of records matching it.
func (s *Server) Query(ctx context.Context, query RecordQuery) (Result, error) {
	observer, ctx := s.startObserver(ctx, spanNameQuery, operationQuery)

	if err := s.validate(query); err != nil {
		observer.finishError(errorTypeValidation)
		return Result{}, err
	}

	result, err := s.query(ctx, query)
	if err != nil {
		observer.finishError(errorTypeOf(err))
		s.logError(ctx, logMsgQueryFailed, err)

		return Result{}, err
	}

	observer.finishSuccess(len(result.Records))
	s.logOperation(ctx, logMsgQueryCompleted, logAttrRecordCount, len(result.Records), logAttrTotal, result.TotalRecords)

	return result, nil
}

func (s *Server) query(ctx context.Context, query RecordQuery) (Result, error) {
	selectQuery, err := s.buildSelectQuery(query)
	if err != nil {
		return Result{}, err
	}

	countQuery, err := s.buildCountQuery(query)
	if err != nil {
		return Result{}, err
	}

	records, err := s.queryRecords(ctx, selectQuery)
	if err != nil {
		return Result{}, err
	}

	total, err := s.queryCount(ctx, countQuery)
	if err != nil {
		return Result{}, err
	}

	return Result{Records: records, TotalRecords: total}, nil
}

// Values returns the distinct values of a filterable column among the records matching query,
// ignoring any filter query carries.
func (s *Server) Values(ctx context.Context, column string, query RecordQuery) ([]string, error) {
	observer, ctx := s.startObserver(ctx, spanNameValues, operationValues)

	query.FilterColumnValues = column
	if err := s.validate(query); err != nil {
		observer.finishError(errorTypeValidation)
		return nil, err
	}

	valuesQuery, err := s.buildValuesQuery(column, query)
	if err != nil {
		observer.finishError(errorTypeBuild)
		s.logError(ctx, logMsgQueryFailed, err)

		return nil, err
	}

	rows, err := s.run(ctx, valuesQuery, logActionValues)
	if err != nil {
		observer.finishError(errorTypeDatabase)
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	var values []string
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			observer.finishError(errorTypeScan)
			return nil, errors.Join(statetable.ErrScanningDBRowFailed, err)
		}

		values = append(values, statetable.Stringify(normalise(value)))
	}

	if err := rows.Err(); err != nil {
		observer.finishError(errorTypeDatabase)
		return nil, errors.Join(statetable.ErrQueryingRecordsFailed, err)
	}

	observer.finishSuccess(len(values))

	return values, nil
}

// CreatePreferenceTable creates the preference table if it does not exist.
func (s *Server) CreatePreferenceTable(ctx context.Context) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s TEXT NOT NULL)",
		s.preferenceTableName, colPreferenceID, colPreferenceTable, colPreferenceData,
	)

	if _, err := s.db.Exec(ctx, ddl); err != nil {
		s.logError(ctx, logMsgExecFailed, err, logAttrQuery, ddl)
		return errors.Join(statetable.ErrSavingPreferenceFailed, err)
	}

	return nil
}

// SavePreferences stores preferences under a new time-ordered id and returns the id.
func (s *Server) SavePreferences(ctx context.Context, preferences statetable.Preferences) (string, error) {
	observer, ctx := s.startObserver(ctx, spanNameSavePreferences, operationSavePreferences)

	if preferences.Table == "" {
		observer.finishError(errorTypeValidation)
		return "", fmt.Errorf("%w: preferences carry no table name", statetable.ErrInvalidQueryParameter)
	}

	id, err := uuid.NewV7()
	if err != nil {
		observer.finishError(errorTypeBuild)
		return "", errors.Join(statetable.ErrSavingPreferenceFailed, err)
	}

	data, err := statetable.MarshalJSON(preferences)
	if err != nil {
		observer.finishError(errorTypeBuild)
		return "", errors.Join(statetable.ErrSavingPreferenceFailed, err)
	}

	insertQuery, err := s.buildInsertPreferenceQuery(id.String(), preferences, data)
	if err != nil {
		observer.finishError(errorTypeBuild)
		return "", err
	}

	start := time.Now()
	result, err := s.db.Exec(ctx, insertQuery)
	s.logQueryWithDuration(ctx, insertQuery, logActionSavePreferences, time.Since(start))
	if err != nil {
		observer.finishError(errorTypeDatabase)
		s.logError(ctx, logMsgExecFailed, err, logAttrQuery, insertQuery)

		return "", errors.Join(statetable.ErrSavingPreferenceFailed, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		observer.finishError(errorTypeDatabase)
		return "", fmt.Errorf("%w: %d rows affected", statetable.ErrSavingPreferenceFailed, affected)
	}

	observer.finishSuccess(1)
	s.logOperation(ctx, logMsgPreferencesSaved, logAttrPreferenceID, id.String())

	return id.String(), nil
}

// LoadPreferences returns the most recently saved preferences of tableName.
func (s *Server) LoadPreferences(ctx context.Context, tableName string) (statetable.Preferences, bool, error) {
	loadQuery, err := s.buildLoadPreferenceQuery(tableName)
	if err != nil {
		return statetable.Preferences{}, false, err
	}

	rows, err := s.run(ctx, loadQuery, logActionLoadPreferences)
	if err != nil {
		return statetable.Preferences{}, false, err
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		return statetable.Preferences{}, false, rows.Err()
	}

	var data string
	if err := rows.Scan(&data); err != nil {
		return statetable.Preferences{}, false, errors.Join(statetable.ErrScanningDBRowFailed, err)
	}

	var preferences statetable.Preferences
	if err := statetable.UnmarshalJSON([]byte(data), &preferences); err != nil {
		return statetable.Preferences{}, false, errors.Join(statetable.ErrScanningDBRowFailed, err)
	}

	return preferences, true, nil
}

// run executes a read statement with timing and error logging.
func (s *Server) run(ctx context.Context, sqlQuery, action string) (adapters.Rows, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(statetable.ErrQueryingRecordsFailed, err)
	}

	return rows, nil
}

func (s *Server) queryRecords(ctx context.Context, sqlQuery string) ([]statetable.Record, error) {
	rows, err := s.run(ctx, sqlQuery, logActionQuery)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	records := make([]statetable.Record, 0)
	values := make([]any, len(s.columns))
	targets := make([]any, len(s.columns))
	for i := range values {
		targets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			s.logError(ctx, logMsgScanRowFailed, err)
			return nil, errors.Join(statetable.ErrScanningDBRowFailed, err)
		}

		record := make(statetable.Record, len(s.columns))
		for i, column := range s.columns {
			record[column.Name] = normalise(values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Join(statetable.ErrQueryingRecordsFailed, err)
	}

	return records, nil
}

func (s *Server) queryCount(ctx context.Context, sqlQuery string) (int, error) {
	rows, err := s.run(ctx, sqlQuery, logActionCount)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(ctx, rows)

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, errors.Join(statetable.ErrScanningDBRowFailed, err)
		}
	}

	if err := rows.Err(); err != nil {
		return 0, errors.Join(statetable.ErrQueryingRecordsFailed, err)
	}

	return int(total), nil
}

func (s *Server) closeRows(ctx context.Context, rows adapters.Rows) {
	if err := rows.Close(); err != nil {
		s.logWarning(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

// normalise turns driver values into values the JSON encoder renders as the client expects.
func normalise(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(timestampLayout)
	default:
		return v
	}
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, statetable.ErrBuildingQueryFailed):
		return errorTypeBuild
	case errors.Is(err, statetable.ErrScanningDBRowFailed):
		return errorTypeScan
	default:
		return errorTypeDatabase
	}
}
