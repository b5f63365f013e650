package roles

import (
	"context"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

// CSS classes the filter role adds to header cells.
const (
	ClassFilterable = "filterable"
	ClassFiltered   = "filtered"
)

func filterRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			return extend(t,
				stateKey{key: resultset.KeyFilterColumn, wire: WireFilterColumn, defaultValue: ""},
				stateKey{key: resultset.KeyFilterValue, wire: WireFilterValue, defaultValue: ""},
				stateKey{key: resultset.KeyFilterColumnValues, wire: WireFilterColumnValues, defaultValue: ""},
			)
		},
		Around: map[string]trait.Binder[*table.Table]{
			resultset.OpPrepareURL: paramStage(
				resultset.KeyFilterColumn, resultset.KeyFilterValue, resultset.KeyFilterColumnValues,
			),
			table.OpRenderHeader: trait.Bind(func(t *table.Table, original advice.Op[*markup.Element, *markup.Element], thead *markup.Element) *markup.Element {
				rendered := original(thead)
				state := t.Resultset().State()
				active := ""
				if state.String(resultset.KeyFilterValue) != "" {
					active = state.String(resultset.KeyFilterColumn)
				}

				for _, th := range rendered.FindTag("th") {
					config, found := t.Config().Column(th.Attr("data-column"))
					if !found || !config.Filterable {
						continue
					}

					th.AddClass(ClassFilterable)
					if config.Name == active {
						th.AddClass(ClassFiltered)
					}
				}

				return rendered
			}),
		},
	}
}

func filterable(c statetable.ColumnConfig) bool {
	return c.Filterable
}

// ApplyFilter restricts the table to records whose column equals value and redraws from the
// first page.
func ApplyFilter(ctx context.Context, t *table.Table, columnName, value string) error {
	if err := requireRole(t, RoleFilter); err != nil {
		return err
	}

	if _, err := column(t, columnName, filterable, statetable.ErrColumnNotFilterable); err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeyFilterColumn: columnName,
		resultset.KeyFilterValue:  value,
		resultset.KeyPage:         1,
	})
}

// ClearFilter removes the filter and redraws from the first page.
func ClearFilter(ctx context.Context, t *table.Table) error {
	if err := requireRole(t, RoleFilter); err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeyFilterColumn: "",
		resultset.KeyFilterValue:  "",
		resultset.KeyPage:         1,
	})
}

// FilterValues asks the data endpoint for the distinct values of a filterable column. It does
// not change the table's records.
func FilterValues(ctx context.Context, t *table.Table, columnName string) ([]string, error) {
	if err := requireRole(t, RoleFilter); err != nil {
		return nil, err
	}

	if _, err := column(t, columnName, filterable, statetable.ErrColumnNotFilterable); err != nil {
		return nil, err
	}

	response, err := t.Resultset().FetchWith(ctx, map[string]any{
		resultset.KeyFilterColumnValues: columnName,
		resultset.KeyPage:               0,
		resultset.KeyPageSize:           0,
	})
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(response.Records))
	for _, record := range response.Records {
		values = append(values, record.Cell(columnName).Text())
	}

	return values, nil
}
