package roles

import (
	"context"
	"fmt"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

func preferenceRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			if roleConfig(t, RolePreference).OptionString("url", "") == "" {
				return fmt.Errorf("%w: the preference role needs a url option", statetable.ErrInvalidConfig)
			}

			return nil
		},
	}
}

// CurrentPreferences collects the user-adjustable settings of t.
func CurrentPreferences(t *table.Table) statetable.Preferences {
	state := t.Resultset().State()

	return statetable.Preferences{
		Table:      t.Name(),
		Columns:    columnNames(t.DisplayedColumns()),
		PageSize:   state.Int(resultset.KeyPageSize),
		SortColumn: state.String(resultset.KeySortColumn),
		SortDesc:   state.Bool(resultset.KeySortDesc),
	}
}

// SavePreferences posts the current preferences to the configured url with the table's
// verification token.
func SavePreferences(ctx context.Context, t *table.Table) (statetable.PostResult, error) {
	if err := requireRole(t, RolePreference); err != nil {
		return statetable.PostResult{}, err
	}

	url := roleConfig(t, RolePreference).OptionString("url", "")

	return t.Resultset().Post(ctx, url, CurrentPreferences(t), t.Config().Properties.VerifyToken)
}
