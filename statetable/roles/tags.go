package roles

import (
	"context"

	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

const defaultTagColumn = "tags"

func tagsRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			if _, err := tagColumn(t); err != nil {
				return err
			}

			return extend(t, searchKeys...)
		},
		Around: merge(
			controls(RoleTags, table.LocationTop, tagsControl),
			map[string]trait.Binder[*table.Table]{
				resultset.OpPrepareURL: trait.Bind(func(t *table.Table, original advice.Op[*resultset.URLArgs, error], args *resultset.URLArgs) error {
					if err := original(args); err != nil {
						return err
					}

					// the search role writes the same parameters
					if t.HasRole(RoleSearch) {
						return nil
					}

					return setParams(args, resultset.KeySearchColumn, resultset.KeySearchValue)
				}),
			},
		),
	}
}

func tagColumn(t *table.Table) (string, error) {
	name := roleConfig(t, RoleTags).OptionString("column", defaultTagColumn)
	if _, err := column(t, name, nil, nil); err != nil {
		return "", err
	}

	return name, nil
}

// activeTag returns the tag currently searched for, if any.
func activeTag(t *table.Table) string {
	name, err := tagColumn(t)
	if err != nil {
		return ""
	}

	state := t.Resultset().State()
	if state.String(resultset.KeySearchColumn) != name {
		return ""
	}

	return state.String(resultset.KeySearchValue)
}

func tagsControl(t *table.Table) *markup.Element {
	tag := activeTag(t)
	if tag == "" {
		return nil
	}

	return markup.New("div",
		markup.WithText("span", tag).AddClass("tag"),
		markup.WithText("button", "×").Set("name", "clear-tag"),
	).AddClass("tag-control")
}

// SearchTag restricts the table to records carrying tag in the tag column and redraws from the
// first page.
func SearchTag(ctx context.Context, t *table.Table, tag string) error {
	if err := requireRole(t, RoleTags); err != nil {
		return err
	}

	name, err := tagColumn(t)
	if err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeySearchColumn: name,
		resultset.KeySearchValue:  tag,
		resultset.KeyPage:         1,
	})
}

// ClearTag removes the tag search and redraws from the first page.
func ClearTag(ctx context.Context, t *table.Table) error {
	if err := requireRole(t, RoleTags); err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeySearchColumn: "",
		resultset.KeySearchValue:  "",
		resultset.KeyPage:         1,
	})
}
