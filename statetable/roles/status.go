package roles

import (
	"context"
	"fmt"
	"slices"

	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

const (
	roleStateStatusMessage = RoleStatus + ".message"
	classStatus            = "status"
	defaultErrorMessage    = "Request failed"
)

func statusRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Around: map[string]trait.Binder[*table.Table]{
			table.OpRender: trait.Bind(func(t *table.Table, original advice.Op[context.Context, error], ctx context.Context) error {
				err := original(ctx)

				message := statusMessage(t, err)
				t.SetRoleState(roleStateStatusMessage, message)
				t.ModifyView(func(view *markup.Element) {
					view.Children = slices.DeleteFunc(view.Children, func(e *markup.Element) bool {
						return e.HasClass(classStatus)
					})
					view.Append(markup.WithText("div", message).AddClass(classStatus))
				})

				return err
			}),
		},
	}
}

func statusMessage(t *table.Table, err error) string {
	if err != nil {
		return roleConfig(t, RoleStatus).OptionString("error-message", defaultErrorMessage)
	}

	count := t.RowCount()
	if total, known := t.Resultset().TotalRecords(); known {
		return fmt.Sprintf("Showing %d of %d", count, total)
	}

	return fmt.Sprintf("Showing %d", count)
}

// StatusMessage returns the message of the last render, or "" before the first one.
func StatusMessage(t *table.Table) string {
	message, _ := t.RoleState(roleStateStatusMessage)
	text, _ := message.(string)

	return text
}
