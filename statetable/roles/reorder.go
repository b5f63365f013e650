package roles

import (
	"context"
	"fmt"
	"slices"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

const roleStateColumnOrder = RoleReorder + ".order"

func reorderRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			config := roleConfig(t, RoleReorder)
			if len(config.OptionStrings("order")) > 0 && !config.Apply.Before {
				return fmt.Errorf("%w: the reorder role needs apply.before to use the order option", statetable.ErrInvalidConfig)
			}

			return nil
		},
		Around: map[string]trait.Binder[*table.Table]{
			table.OpCreateColumn: trait.Bind(func(t *table.Table, original advice.Op[statetable.ColumnConfig, *table.Column], config statetable.ColumnConfig) *table.Column {
				order := roleConfig(t, RoleReorder).OptionStrings("order")
				if index := slices.Index(order, config.Name); index >= 0 {
					config.Position = index
				} else if len(order) > 0 {
					config.Position += len(order)
				}

				return original(config)
			}),
			table.OpRenderHeader: trait.Bind(func(_ *table.Table, original advice.Op[*markup.Element, *markup.Element], thead *markup.Element) *markup.Element {
				rendered := original(thead)
				for _, th := range rendered.FindTag("th") {
					th.Set("draggable", "true")
				}

				return rendered
			}),
		},
	}
}

// MoveColumn moves a column to position, remembers the resulting order and redraws.
func MoveColumn(ctx context.Context, t *table.Table, name string, position int) error {
	if err := requireRole(t, RoleReorder); err != nil {
		return err
	}

	if err := t.MoveColumn(name, position); err != nil {
		return err
	}

	t.SetRoleState(roleStateColumnOrder, columnNames(t.Columns()))

	return t.Redraw(ctx)
}

// ColumnOrder returns the column order set by MoveColumn, or nil when no column was moved.
func ColumnOrder(t *table.Table) []string {
	order, _ := t.RoleState(roleStateColumnOrder)
	names, _ := order.([]string)

	return names
}

func columnNames(columns []*table.Column) []string {
	names := make([]string, 0, len(columns))
	for _, column := range columns {
		names = append(names, column.Name())
	}

	return names
}
