package table

import (
	"context"
	"errors"
	"strconv"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
)

// CSS classes of the rendered tree.
const (
	ClassTable          = "statetable"
	ClassTopControls    = "top-controls"
	ClassBottomControls = "bottom-controls"
	ClassNoData         = "no-data"
	ClassSortable       = "sortable"
	ClassSorted         = "sorted"
)

// baseRender builds a complete view from the batch of the current pass. The view is swapped
// in only when the pass succeeds and no pass holding a newer batch has rendered yet, so a
// failed or overtaken pass leaves the newer view in place.
func (t *Table) baseRender(ctx context.Context) error {
	batch, err := t.rs.Batch(ctx)
	if errors.Is(err, statetable.ErrStaleResult) {
		t.logOperation(ctx, logMsgRenderSkipped)
		return nil
	}
	if err != nil {
		t.logError(ctx, logMsgRenderFailed, err)
		return err
	}

	header := t.renderHeader.Call(markup.New("thead"))
	body := markup.New("tbody")

	count := 0
	for _, record := range batch.Records {
		row := t.createRow.Call(record)
		if row == nil {
			continue
		}
		row.index = count

		t.appendRow.Call(RowInsert{Body: body, Row: row, Element: row.Render()})
		count++
	}

	if count == 0 && t.cfg.Properties.NoDataMessage != "" {
		body.Append(t.renderNoData.Call(markup.New("tr").AddClass(ClassNoData)))
	}

	// controls read RowCount
	t.mu.Lock()
	if batch.Epoch >= t.countedEpoch {
		t.countedEpoch = batch.Epoch
		t.rowCount = count
	}
	t.mu.Unlock()

	top := t.renderTopControls.Call(markup.New("div").AddClass(ClassTopControls))
	bottom := t.renderBottomControls.Call(markup.New("div").AddClass(ClassBottomControls))

	grid := markup.New("table")
	if caption := t.cfg.Properties.Caption; caption != "" {
		grid.Append(markup.WithText("caption", caption))
	}
	grid.Append(header, body)

	view := markup.New("div").AddClass(ClassTable).Set("data-table-name", t.cfg.Name)
	if len(top.Children) > 0 {
		view.Append(top)
	}
	view.Append(grid)
	if len(bottom.Children) > 0 {
		view.Append(bottom)
	}

	t.mu.Lock()
	if batch.Epoch < t.renderedEpoch {
		t.mu.Unlock()
		t.logOperation(ctx, logMsgRenderSkipped)
		return nil
	}
	t.renderedEpoch = batch.Epoch
	t.view = view
	t.mu.Unlock()

	t.logOperation(ctx, logMsgRenderCompleted, logAttrRowCount, count)

	return nil
}

func (t *Table) baseRenderHeader(thead *markup.Element) *markup.Element {
	state := t.rs.State()
	sortColumn := state.String(resultset.KeySortColumn)

	tr := markup.New("tr")
	for _, column := range t.DisplayedColumns() {
		th := markup.WithText("th", column.Label()).Set("data-column", column.name)

		if column.Sortable() {
			th.AddClass(ClassSortable)
			if column.name == sortColumn {
				direction := "asc"
				if state.Bool(resultset.KeySortDesc) {
					direction = "desc"
				}
				th.AddClass(ClassSorted).AddClass(direction)
			}
		}

		tr.Append(th)
	}

	return thead.Append(tr)
}

// baseRenderNoData fills the placeholder row with one cell spanning every displayed column.
func (t *Table) baseRenderNoData(tr *markup.Element) *markup.Element {
	span := max(len(t.DisplayedColumns()), 1)

	return tr.Append(markup.WithText("td", t.cfg.Properties.NoDataMessage).Set("colspan", strconv.Itoa(span)))
}

func baseAppendRow(insert RowInsert) *markup.Element {
	insert.Body.Append(insert.Element)
	return insert.Element
}
