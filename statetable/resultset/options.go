package resultset

import (
	"net/http"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/transport"
)

// Option defines a functional option for configuring a Resultset.
type Option func(*Resultset) error

// WithName sets the table name used in logs, metrics and traces.
func WithName(name string) Option {
	return func(rs *Resultset) error {
		if name == "" {
			return statetable.ErrEmptyTableName
		}

		rs.name = name

		return nil
	}
}

// WithFetcher sets the component that executes data endpoint requests.
func WithFetcher(fetcher Fetcher) Option {
	return func(rs *Resultset) error {
		if fetcher == nil {
			return statetable.ErrNilFetcher
		}

		rs.fetcher = fetcher

		return nil
	}
}

// WithPoster sets the component that executes write endpoint requests.
func WithPoster(poster Poster) Option {
	return func(rs *Resultset) error {
		if poster == nil {
			return statetable.ErrNilFetcher
		}

		rs.poster = poster

		return nil
	}
}

// WithHTTPClient fetches and posts through an HTTP client built on c.
func WithHTTPClient(c *http.Client) Option {
	return func(rs *Resultset) error {
		client := transport.NewClient(transport.WithHTTPClient(c))
		rs.fetcher = client
		rs.poster = client

		return nil
	}
}

// WithAdvice declares the prepareURL operation on an existing target instead of a private one.
func WithAdvice(target *advice.Target) Option {
	return func(rs *Resultset) error {
		rs.target = target
		return nil
	}
}

// WithPaging enables the page and page_size query parameters.
func WithPaging(enabled bool) Option {
	return func(rs *Resultset) error {
		rs.enablePaging = enabled
		return nil
	}
}

// WithPageSize sets the initial page size.
func WithPageSize(pageSize int) Option {
	return func(rs *Resultset) error {
		if pageSize <= 0 {
			return statetable.ErrInvalidStateValue
		}

		rs.pageSize = pageSize

		return nil
	}
}

// WithMaxPageSize caps every page size written to the state.
func WithMaxPageSize(maxPageSize int) Option {
	return func(rs *Resultset) error {
		if maxPageSize <= 0 {
			return statetable.ErrInvalidStateValue
		}

		rs.maxPageSize = maxPageSize

		return nil
	}
}

// WithInitialState writes values to the state after construction, as Search would.
func WithInitialState(values map[string]any) Option {
	return func(rs *Resultset) error {
		rs.initialState = values
		return nil
	}
}

// WithLogger sets the logger for the Resultset.
// Debug level: request URLs with timing.
// Info level: record counts of completed fetches.
// Warn level: discarded stale results.
// Error level: failed fetches and posts.
func WithLogger(logger statetable.Logger) Option {
	return func(rs *Resultset) error {
		rs.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Resultset.
// It receives the same messages as the Logger with the request context attached.
func WithContextualLogger(logger statetable.ContextualLogger) Option {
	return func(rs *Resultset) error {
		rs.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Resultset.
func WithMetrics(collector statetable.MetricsCollector) Option {
	return func(rs *Resultset) error {
		rs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Resultset.
func WithTracing(collector statetable.TracingCollector) Option {
	return func(rs *Resultset) error {
		rs.tracingCollector = collector
		return nil
	}
}
