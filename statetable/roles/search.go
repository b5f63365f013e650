package roles

import (
	"context"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

var searchKeys = []stateKey{
	{key: resultset.KeySearchColumn, wire: WireSearchColumn, defaultValue: ""},
	{key: resultset.KeySearchValue, wire: WireSearch, defaultValue: ""},
}

func searchRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			return extend(t, searchKeys...)
		},
		Around: merge(
			controls(RoleSearch, table.LocationTop, searchControl),
			map[string]trait.Binder[*table.Table]{
				resultset.OpPrepareURL: paramStage(resultset.KeySearchColumn, resultset.KeySearchValue),
			},
		),
	}
}

func searchControl(t *table.Table) *markup.Element {
	state := t.Resultset().State()
	selected := state.String(resultset.KeySearchColumn)

	choices := markup.New("select").Set("name", WireSearchColumn)
	choices.Append(markup.WithText("option", "All").Set("value", ""))
	for _, column := range t.Columns() {
		if !column.Config().Searchable {
			continue
		}

		option := markup.WithText("option", column.Label()).Set("value", column.Name())
		if column.Name() == selected {
			option.Set("selected", "selected")
		}
		choices.Append(option)
	}

	input := markup.New("input").
		Set("type", "search").
		Set("name", WireSearch).
		Set("value", state.String(resultset.KeySearchValue))

	return markup.New("form", choices, input).AddClass("search")
}

// Search searches value in column, or in every searchable column when column is empty, and
// redraws from the first page.
func Search(ctx context.Context, t *table.Table, columnName, value string) error {
	if err := requireRole(t, RoleSearch); err != nil {
		return err
	}

	if columnName != "" {
		if _, err := column(t, columnName, func(c statetable.ColumnConfig) bool { return c.Searchable }, statetable.ErrColumnNotSearchable); err != nil {
			return err
		}
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeySearchColumn: columnName,
		resultset.KeySearchValue:  value,
		resultset.KeyPage:         1,
	})
}
