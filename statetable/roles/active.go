package roles

import (
	"context"

	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

func activeRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			return extend(t, stateKey{key: resultset.KeyShowInactive, wire: WireShowInactive, defaultValue: false})
		},
		Around: merge(
			controls(RoleActive, table.LocationTop, activeControl),
			map[string]trait.Binder[*table.Table]{
				resultset.OpPrepareURL: paramStage(resultset.KeyShowInactive),
			},
		),
	}
}

func activeControl(t *table.Table) *markup.Element {
	checkbox := markup.New("input").Set("type", "checkbox").Set("name", WireShowInactive)
	if t.Resultset().State().Bool(resultset.KeyShowInactive) {
		checkbox.Set("checked", "checked")
	}

	label := roleConfig(t, RoleActive).OptionString("label", "Show inactive")

	return markup.New("label", checkbox, markup.Text(label)).AddClass("active-control")
}

// ShowInactive toggles whether inactive records are requested and redraws from the first page.
func ShowInactive(ctx context.Context, t *table.Table, show bool) error {
	if err := requireRole(t, RoleActive); err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{
		resultset.KeyShowInactive: show,
		resultset.KeyPage:         1,
	})
}
