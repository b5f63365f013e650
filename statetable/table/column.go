package table

import (
	"context"
	"fmt"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/resultset"
)

// Column is one configured data field. Its name is its identity.
type Column struct {
	table    *Table
	config   statetable.ColumnConfig
	name     string
	position int
}

func (t *Table) baseCreateColumn(config statetable.ColumnConfig) *Column {
	return &Column{
		table:    t,
		config:   config,
		name:     config.Name,
		position: config.Position,
	}
}

// Name returns the column name, the key into a record.
func (c *Column) Name() string {
	return c.name
}

// Label returns the header label.
func (c *Column) Label() string {
	return c.config.DisplayLabel()
}

// Config returns the column configuration.
func (c *Column) Config() statetable.ColumnConfig {
	return c.config
}

// Table returns the owning table.
func (c *Column) Table() *Table {
	return c.table
}

// Displayed reports whether the column is rendered.
func (c *Column) Displayed() bool {
	return c.config.IsDisplayed()
}

// Sortable reports whether the column can be sorted on.
func (c *Column) Sortable() bool {
	return c.config.Sortable
}

// Position returns the column's place in the sequence it was last sorted into.
func (c *Column) Position() int {
	return c.position
}

// SortBy sorts the table on this column and redraws. Sorting on the current sort column
// toggles the direction; any new sort starts ascending on the first page.
func (c *Column) SortBy(ctx context.Context) error {
	if !c.config.Sortable {
		return fmt.Errorf("%w: %q", statetable.ErrColumnNotSortable, c.name)
	}

	state := c.table.rs.State()
	desc := false
	if state.String(resultset.KeySortColumn) == c.name {
		desc = !state.Bool(resultset.KeySortDesc)
	}

	return c.table.Search(ctx, resultset.SearchOptions{
		resultset.KeySortColumn: c.name,
		resultset.KeySortDesc:   desc,
		resultset.KeyPage:       1,
	})
}
