package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/roles"
	"github.com/pjfl/statetable/statetable/table"
)

type renderOptions struct {
	stateURL string
	page     int
	sort     string
	desc     bool
	search   string
	filter   string
	output   string
}

var renderFlags renderOptions

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch one page from the data endpoint and print the table as HTML",
	Long: `Render builds the table described by --config, applies the requested state,
fetches the matching page from the configured data-url and prints the rendered
markup.

State can be given as flags or restored from a URL previously produced by the
table, e.g.:
  statetable render --config people.yaml --page 2 --sort name --desc
  statetable render --config people.yaml --filter role=admin
  statetable render --config people.yaml --state-url 'http://host/people?page=3&sort=email'`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	flags := renderCmd.Flags()
	flags.StringVar(&renderFlags.stateURL, "state-url", "", "restore state from the query parameters of this URL")
	flags.IntVar(&renderFlags.page, "page", 0, "page to show")
	flags.StringVar(&renderFlags.sort, "sort", "", "sort column")
	flags.BoolVar(&renderFlags.desc, "desc", false, "sort descending")
	flags.StringVar(&renderFlags.search, "search", "", "search value, optionally column=value (needs the search role)")
	flags.StringVar(&renderFlags.filter, "filter", "", "filter as column=value (needs the filter role)")
	flags.StringVarP(&renderFlags.output, "output", "o", "", "write the markup to this file instead of stdout")
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := loadTableConfig(flagConfig)
	if err != nil {
		return err
	}

	obs, err := newObservability(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	t, err := table.New(cfg, append(roles.TableOptions(),
		table.WithContextualLogger(obs.logger),
		table.WithMetrics(obs.metrics),
		table.WithTracing(obs.tracing),
	)...)
	if err != nil {
		return fmt.Errorf("build table: %w", err)
	}

	ctx := cmd.Context()
	if err := applyRenderState(ctx, t); err != nil {
		return err
	}

	out := io.Writer(cmd.OutOrStdout())
	if renderFlags.output != "" {
		file, err := os.Create(renderFlags.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	_, err = fmt.Fprintln(out, t.View().HTML())

	return err
}

// applyRenderState writes the requested state and renders once.
func applyRenderState(ctx context.Context, t *table.Table) error {
	options := resultset.SearchOptions{}

	if renderFlags.stateURL != "" {
		values, err := t.Resultset().StateFromURL(renderFlags.stateURL)
		if err != nil {
			return fmt.Errorf("restore state: %w", err)
		}
		for key, value := range values {
			options[key] = value
		}
	}

	if renderFlags.page > 0 {
		options[resultset.KeyPage] = renderFlags.page
	}

	if renderFlags.sort != "" {
		options[resultset.KeySortColumn] = renderFlags.sort
		options[resultset.KeySortDesc] = renderFlags.desc
	}

	if renderFlags.search != "" {
		column, value := splitAssignment(renderFlags.search)
		options[resultset.KeySearchColumn] = column
		options[resultset.KeySearchValue] = value
	}

	if renderFlags.filter != "" {
		column, value := splitAssignment(renderFlags.filter)
		if column == "" {
			return fmt.Errorf("invalid --filter %q, expected column=value", renderFlags.filter)
		}
		options[resultset.KeyFilterColumn] = column
		options[resultset.KeyFilterValue] = value
	}

	return t.Search(ctx, options)
}

// splitAssignment splits "column=value"; without "=" the whole text is the value.
func splitAssignment(text string) (string, string) {
	column, value, found := strings.Cut(text, "=")
	if !found {
		return "", text
	}

	return column, value
}
