package endpoint

import (
	"fmt"

	"github.com/pjfl/statetable/statetable"
)

// Supported SQL dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Option defines a functional option for configuring a Server.
type Option func(*Server) error

// WithTableName sets the SQL table the records are read from.
func WithTableName(tableName string) Option {
	return func(s *Server) error {
		if tableName == "" {
			return statetable.ErrEmptyRecordTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithPreferenceTableName sets the SQL table posted preferences are stored in.
func WithPreferenceTableName(tableName string) Option {
	return func(s *Server) error {
		if tableName == "" {
			return statetable.ErrEmptyRecordTableName
		}

		s.preferenceTableName = tableName

		return nil
	}
}

// WithColumns sets the columns the server selects. Their sortable, searchable and filterable
// flags decide which request parameters are accepted.
func WithColumns(columns ...statetable.ColumnConfig) Option {
	return func(s *Server) error {
		if len(columns) == 0 {
			return statetable.ErrNoColumnsConfigured
		}

		s.columns = columns

		return nil
	}
}

// WithTableConfig takes the columns, verification token and maximum page size from the
// configuration of the table the server feeds.
func WithTableConfig(cfg statetable.Config) Option {
	return func(s *Server) error {
		cfg = cfg.WithDefaults()
		if len(cfg.Columns) == 0 {
			return statetable.ErrNoColumnsConfigured
		}

		s.name = cfg.Name
		s.columns = cfg.Columns
		s.verifyToken = cfg.Properties.VerifyToken
		s.maxPageSize = cfg.Properties.MaxPageSize

		return nil
	}
}

// WithDialect selects the SQL dialect, DialectPostgres by default.
func WithDialect(dialect string) Option {
	return func(s *Server) error {
		if dialect != DialectPostgres && dialect != DialectSQLite {
			return fmt.Errorf("%w: unsupported dialect %q", statetable.ErrInvalidConfig, dialect)
		}

		s.dialect = dialect

		return nil
	}
}

// WithActiveColumn names the boolean column that hides inactive records unless the request
// asks for them with show_inactive.
func WithActiveColumn(column string) Option {
	return func(s *Server) error {
		s.activeColumn = column
		return nil
	}
}

// WithVerifyToken sets the token POST requests must carry.
func WithVerifyToken(token string) Option {
	return func(s *Server) error {
		s.verifyToken = token
		return nil
	}
}

// WithMaxPageSize caps the page size a request may ask for.
func WithMaxPageSize(size int) Option {
	return func(s *Server) error {
		if size <= 0 {
			return fmt.Errorf("%w: max page size must be positive", statetable.ErrInvalidConfig)
		}

		s.maxPageSize = size

		return nil
	}
}

// WithLogger sets the logger for the Server.
// Debug level: SQL statements with execution timing
// Info level: record counts and durations
// Error level: failed statements and requests.
func WithLogger(logger statetable.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Server.
func WithContextualLogger(logger statetable.ContextualLogger) Option {
	return func(s *Server) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Server.
func WithMetrics(collector statetable.MetricsCollector) Option {
	return func(s *Server) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Server.
func WithTracing(collector statetable.TracingCollector) Option {
	return func(s *Server) error {
		s.tracingCollector = collector
		return nil
	}
}
