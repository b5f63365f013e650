package table

import (
	"net/http"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/trait"
)

// Option defines a functional option for configuring a Table.
type Option func(*Table) error

// WithRoles sets the registry configured role names are resolved against.
func WithRoles(registry *trait.Registry[*Table]) Option {
	return func(t *Table) error {
		if registry != nil {
			t.roles = registry
		}
		return nil
	}
}

// WithCellTraits sets the registry column trait names are resolved against.
func WithCellTraits(registry *trait.Registry[*Cell]) Option {
	return func(t *Table) error {
		if registry != nil {
			t.cellTraits = registry
		}
		return nil
	}
}

// WithRowTraits sets the registry row trait names are resolved against.
func WithRowTraits(registry *trait.Registry[*Row]) Option {
	return func(t *Table) error {
		if registry != nil {
			t.rowTraits = registry
		}
		return nil
	}
}

// WithResultsetOptions passes options through to the table's resultset.
func WithResultsetOptions(options ...resultset.Option) Option {
	return func(t *Table) error {
		t.resultsetOptions = append(t.resultsetOptions, options...)
		return nil
	}
}

// WithFetcher sets the component that executes data and write endpoint requests.
func WithFetcher(fetcher interface {
	resultset.Fetcher
	resultset.Poster
}) Option {
	return func(t *Table) error {
		if fetcher == nil {
			return statetable.ErrNilFetcher
		}

		t.resultsetOptions = append(t.resultsetOptions, resultset.WithFetcher(fetcher), resultset.WithPoster(fetcher))

		return nil
	}
}

// WithHTTPClient fetches and posts through c.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Table) error {
		t.resultsetOptions = append(t.resultsetOptions, resultset.WithHTTPClient(c))
		return nil
	}
}

// WithLogger sets the logger for the table and its resultset.
func WithLogger(logger statetable.Logger) Option {
	return func(t *Table) error {
		t.logger = logger
		t.resultsetOptions = append(t.resultsetOptions, resultset.WithLogger(logger))

		return nil
	}
}

// WithContextualLogger sets the contextual logger for the table and its resultset.
func WithContextualLogger(logger statetable.ContextualLogger) Option {
	return func(t *Table) error {
		t.contextualLogger = logger
		t.resultsetOptions = append(t.resultsetOptions, resultset.WithContextualLogger(logger))

		return nil
	}
}

// WithMetrics sets the metrics collector of the resultset.
func WithMetrics(collector statetable.MetricsCollector) Option {
	return func(t *Table) error {
		t.resultsetOptions = append(t.resultsetOptions, resultset.WithMetrics(collector))
		return nil
	}
}

// WithTracing sets the tracing collector of the resultset.
func WithTracing(collector statetable.TracingCollector) Option {
	return func(t *Table) error {
		t.resultsetOptions = append(t.resultsetOptions, resultset.WithTracing(collector))
		return nil
	}
}
