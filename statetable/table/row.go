package table

import (
	"context"
	"fmt"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/trait"
)

// Extension points of rows and cells.
const (
	OpRowRender  = "render"
	OpCellValue  = "value"
	OpCellRender = "render"
)

// Row is created for one record on every render pass.
type Row struct {
	table   *Table
	record  statetable.Record
	columns []*Column
	index   int
	target  *advice.Target
	render  *advice.Point[*markup.Element, *markup.Element]
}

func (t *Table) baseCreateRow(record statetable.Record) *Row {
	row := &Row{
		table:   t,
		record:  record,
		columns: t.DisplayedColumns(),
		target:  advice.NewTarget(t.cfg.Name + ".row"),
	}

	// declaring on a fresh target cannot fail
	row.render, _ = advice.Declare(row.target, OpRowRender, row.baseRender)

	if err := trait.Apply(row, t.rowTraits, t.cfg.RowTraits, trait.Args{}); err != nil {
		t.logError(context.Background(), logMsgRowTraitFailed, err)
		return nil
	}

	return row
}

// Advice returns the row's advice target.
func (r *Row) Advice() *advice.Target {
	return r.target
}

// Table returns the owning table.
func (r *Row) Table() *Table {
	return r.table
}

// Record returns the source record.
func (r *Row) Record() statetable.Record {
	return r.record
}

// Index returns the row's zero based position in the current pass.
func (r *Row) Index() int {
	return r.index
}

// Columns returns the columns the row renders.
func (r *Row) Columns() []*Column {
	return r.columns
}

// Render renders the row through its advice chain.
func (r *Row) Render() *markup.Element {
	return r.render.Call(markup.New("tr"))
}

func (r *Row) baseRender(tr *markup.Element) *markup.Element {
	for _, column := range r.columns {
		cell, err := r.newCell(column)
		if err != nil {
			tr.Append(markup.WithText("td", "").Set("data-error", err.Error()))
			continue
		}

		tr.Append(cell.Render())
	}

	return tr
}

func (r *Row) newCell(column *Column) (*Cell, error) {
	cell := &Cell{
		row:    r,
		column: column,
		target: advice.NewTarget(fmt.Sprintf("%s.cell.%s", r.table.cfg.Name, column.name)),
	}

	var err error
	if cell.value, err = advice.Declare(cell.target, OpCellValue, cell.baseValue); err != nil {
		return nil, err
	}
	if cell.render, err = advice.Declare(cell.target, OpCellRender, cell.baseRender); err != nil {
		return nil, err
	}

	args := trait.Args{ArgColumn: column.config}
	if err := trait.Apply(cell, r.table.cellTraits, column.config.Traits, args); err != nil {
		return nil, err
	}

	return cell, nil
}

// Cell is created for one (row, column) pair on every render pass.
type Cell struct {
	row    *Row
	column *Column
	target *advice.Target
	value  *advice.Point[statetable.Record, statetable.CellValue]
	render *advice.Point[*markup.Element, *markup.Element]
}

// Advice returns the cell's advice target.
func (c *Cell) Advice() *advice.Target {
	return c.target
}

// Row returns the owning row.
func (c *Cell) Row() *Row {
	return c.row
}

// Column returns the cell's column.
func (c *Cell) Column() *Column {
	return c.column
}

// Value returns the display value through the value chain.
func (c *Cell) Value() statetable.CellValue {
	return c.value.Call(c.row.record)
}

// Render renders the cell through its advice chain.
func (c *Cell) Render() *markup.Element {
	return c.render.Call(markup.New("td").Set("data-column", c.column.name))
}

func (c *Cell) baseValue(record statetable.Record) statetable.CellValue {
	return record.Cell(c.column.name)
}

// baseRender implements the cell shape contract: the value as text, wrapped in a link when
// the cell has one, followed by the appended content and the tag list.
func (c *Cell) baseRender(td *markup.Element) *markup.Element {
	value := c.Value()
	if !value.Present {
		return td
	}

	content := markup.Text(value.Text())
	if value.Link != "" {
		content = markup.New("a", content).Set("href", value.Link)
	}
	td.Append(content)

	if appended := statetable.Stringify(value.Append); appended != "" {
		td.Append(markup.WithText("span", appended).AddClass("append"))
	}

	if len(value.Tags) > 0 {
		tags := markup.New("ul").AddClass("tags")
		for _, tag := range value.Tags {
			tags.Append(markup.WithText("li", tag).AddClass("tag"))
		}
		td.Append(tags)
	}

	return td
}
