package roles

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

func pagingRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			if !t.Resultset().PagingEnabled() {
				return fmt.Errorf("%w: the paging role needs enable-paging", statetable.ErrInvalidConfig)
			}
			return nil
		},
		Around: controls(RolePaging, table.LocationBottom, pagingControl),
	}
}

func pagingControl(t *table.Table) *markup.Element {
	rs := t.Resultset()
	page := rs.State().Int(resultset.KeyPage)
	last := rs.LastPage()

	position := fmt.Sprintf("Page %d of %d", page, last)
	if _, known := rs.TotalRecords(); !known {
		position = fmt.Sprintf("Page %d", page)
	}

	link := func(label string, target int, disabled bool) *markup.Element {
		item := markup.WithText("li", label).Set("data-page", strconv.Itoa(target))
		if disabled {
			item.AddClass("disabled")
		}
		return item
	}

	return markup.New("ul",
		link("«", 1, page <= 1),
		link("‹", max(page-1, 1), page <= 1),
		markup.WithText("li", position).AddClass("current"),
		link("›", min(page+1, last), page >= last),
		link("»", last, page >= last),
	).AddClass("pagination")
}

// GoToPage moves to page, clamped to the known page range, and redraws. Without a reported
// total the range ends one page past a full batch.
func GoToPage(ctx context.Context, t *table.Table, page int) error {
	if err := requireRole(t, RolePaging); err != nil {
		return err
	}

	page = max(1, min(page, t.Resultset().LastPage()))

	return t.Search(ctx, resultset.SearchOptions{resultset.KeyPage: page})
}

// NextPage moves one page forward.
func NextPage(ctx context.Context, t *table.Table) error {
	return GoToPage(ctx, t, t.Resultset().State().Int(resultset.KeyPage)+1)
}

// PreviousPage moves one page back.
func PreviousPage(ctx context.Context, t *table.Table) error {
	return GoToPage(ctx, t, t.Resultset().State().Int(resultset.KeyPage)-1)
}

// SetPageSize changes the page size, which returns to the first page, and redraws.
func SetPageSize(ctx context.Context, t *table.Table, pageSize int) error {
	if err := requireRole(t, RolePaging); err != nil {
		return err
	}

	return t.Search(ctx, resultset.SearchOptions{resultset.KeyPageSize: pageSize})
}
