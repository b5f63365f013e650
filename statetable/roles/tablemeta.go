package roles

import (
	"context"

	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

func tableMetaRole() trait.Trait[*table.Table] {
	return trait.Trait[*table.Table]{
		Initialise: func(t *table.Table, _ trait.Args) error {
			return extend(t, stateKey{key: resultset.KeyTableMeta, wire: WireTableMeta, defaultValue: false})
		},
		Around: map[string]trait.Binder[*table.Table]{
			resultset.OpPrepareURL: paramStage(resultset.KeyTableMeta),
		},
	}
}

// FetchTableMeta asks the data endpoint for the table's metadata document and returns it
// undecoded. The table's records are not changed.
func FetchTableMeta(ctx context.Context, t *table.Table) (map[string]any, error) {
	if err := requireRole(t, RoleTableMeta); err != nil {
		return nil, err
	}

	response, err := t.Resultset().FetchWith(ctx, map[string]any{
		resultset.KeyTableMeta: true,
		resultset.KeyPage:      0,
		resultset.KeyPageSize:  0,
	})
	if err != nil {
		return nil, err
	}

	return response.Raw, nil
}
