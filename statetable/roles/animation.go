package roles

import (
	"strconv"

	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

// Animation modes.
const (
	AnimationAppend  = "append"
	AnimationPrepend = "prepend"
)

const classAnimated = "animated"

func animationRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Around: map[string]trait.Binder[*table.Table]{
			table.OpAppendRow: trait.Bind(func(t *table.Table, original advice.Op[table.RowInsert, *markup.Element], insert table.RowInsert) *markup.Element {
				config := roleConfig(t, RoleAnimation)
				delay := config.OptionInt("delay", 0)

				insert.Element.AddClass(classAnimated)
				insert.Element.Set("data-animation-delay", strconv.Itoa(delay*insert.Row.Index()))

				if config.OptionString("mode", AnimationAppend) == AnimationPrepend {
					insert.Body.Prepend(insert.Element)
					return insert.Element
				}

				return original(insert)
			}),
		},
	}
}
