// Package roles provides the built-in table roles, column (cell) traits and row traits.
//
// Roles that affect requests register their state keys and query parameter names during
// initialisation and wrap prepareURL to write them. Roles with controls attach them to the
// top or bottom control slot named by their "control" location (see table.LocationTop).
package roles

import (
	"fmt"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/table"
	"github.com/pjfl/statetable/statetable/trait"
)

// Built-in role names.
const (
	RolePaging     = "paging"
	RoleSearch     = "search"
	RoleFilter     = "filter"
	RoleActive     = "active"
	RoleDownload   = "download"
	RoleTableMeta  = "tablemeta"
	RoleTags       = "tags"
	RoleReorder    = "reorder"
	RoleAnimation  = "animation"
	RoleStatus     = "status"
	RolePreference = "preference"
)

// Built-in trait names.
const (
	TraitNumeric  = "numeric"
	TraitCheckbox = "checkbox"
	TraitDate     = "date"
	TraitBool     = "bool"
	TraitInactive = "inactive"
)

// Query parameter names of the role-specific state keys.
const (
	WireSearch             = "search"
	WireSearchColumn       = "search_column"
	WireFilterColumn       = "filter_column"
	WireFilterValue        = "filter_value"
	WireShowInactive       = "show_inactive"
	WireDownload           = "download"
	WireTableMeta          = "table_meta"
	WireFilterColumnValues = "filter_column_values"
)

const locationControl = "control"

// NewRoleRegistry returns a fresh registry holding every built-in role.
func NewRoleRegistry() *trait.Registry[*table.Table] {
	registry := trait.NewRegistry[*table.Table]("role")

	registry.MustRegister(RolePaging, pagingRole())
	registry.MustRegister(RoleSearch, searchRole())
	registry.MustRegister(RoleFilter, filterRole())
	registry.MustRegister(RoleActive, activeRole())
	registry.MustRegister(RoleDownload, downloadRole())
	registry.MustRegister(RoleTableMeta, tableMetaRole())
	registry.MustRegister(RoleTags, tagsRole())
	registry.MustRegister(RoleReorder, reorderRole())
	registry.MustRegister(RoleAnimation, animationRole())
	registry.MustRegister(RoleStatus, statusRole())
	registry.MustRegister(RolePreference, preferenceRole())

	return registry
}

// NewCellTraitRegistry returns a fresh registry holding every built-in column trait.
func NewCellTraitRegistry() *trait.Registry[*table.Cell] {
	registry := trait.NewRegistry[*table.Cell]("cell trait")

	registry.MustRegister(TraitNumeric, numericTrait())
	registry.MustRegister(TraitCheckbox, checkboxTrait())
	registry.MustRegister(TraitDate, dateTrait())
	registry.MustRegister(TraitBool, boolTrait())

	return registry
}

// NewRowTraitRegistry returns a fresh registry holding every built-in row trait.
func NewRowTraitRegistry() *trait.Registry[*table.Row] {
	registry := trait.NewRegistry[*table.Row]("row trait")

	registry.MustRegister(TraitInactive, inactiveTrait())

	return registry
}

// TableOptions wires fresh built-in registries into table.New.
func TableOptions() []table.Option {
	return []table.Option{
		table.WithRoles(NewRoleRegistry()),
		table.WithCellTraits(NewCellTraitRegistry()),
		table.WithRowTraits(NewRowTraitRegistry()),
	}
}

// roleConfig returns the configuration of a role applied to t.
func roleConfig(t *table.Table, role string) statetable.RoleConfig {
	return t.Config().Roles[role]
}

// requireRole fails when the role the call belongs to is not configured on t.
func requireRole(t *table.Table, role string) error {
	if !t.HasRole(role) {
		return &statetable.UnknownCapabilityError{Kind: "role", Name: role}
	}

	return nil
}

// stateKey is a role-specific state key with its query parameter name and default.
type stateKey struct {
	key          string
	wire         string
	defaultValue any
}

// extend registers role-specific state keys on the table's resultset.
func extend(t *table.Table, keys ...stateKey) error {
	for _, k := range keys {
		if err := t.Resultset().Extend(k.key, k.wire, k.defaultValue); err != nil {
			return err
		}
	}

	return nil
}

// paramStage wraps prepareURL to write the query parameters of keys.
func paramStage(keys ...string) trait.Binder[*table.Table] {
	return trait.Bind(func(_ *table.Table, original advice.Op[*resultset.URLArgs, error], args *resultset.URLArgs) error {
		if err := original(args); err != nil {
			return err
		}

		return setParams(args, keys...)
	})
}

func setParams(args *resultset.URLArgs, keys ...string) error {
	for _, key := range keys {
		if err := args.SetParam(key); err != nil {
			return err
		}
	}

	return nil
}

// controls returns around entries that add the control built by build to the slot the role is
// located in.
func controls(role, defaultLocation string, build func(t *table.Table) *markup.Element) map[string]trait.Binder[*table.Table] {
	slot := func(location string) trait.Binder[*table.Table] {
		return trait.Bind(func(t *table.Table, original advice.Op[*markup.Element, *markup.Element], e *markup.Element) *markup.Element {
			rendered := original(e)
			if roleConfig(t, role).LocationOf(locationControl, defaultLocation) != location {
				return rendered
			}

			return rendered.Append(build(t))
		})
	}

	return map[string]trait.Binder[*table.Table]{
		table.OpRenderTopControls:    slot(table.LocationTop),
		table.OpRenderBottomControls: slot(table.LocationBottom),
	}
}

// merge combines around tables. Later tables win on conflicting operation names.
func merge(tables ...map[string]trait.Binder[*table.Table]) map[string]trait.Binder[*table.Table] {
	merged := make(map[string]trait.Binder[*table.Table])
	for _, around := range tables {
		for operation, binder := range around {
			merged[operation] = binder
		}
	}

	return merged
}

// column looks up a configured column and checks it with allowed.
func column(t *table.Table, name string, allowed func(statetable.ColumnConfig) bool, notAllowed error) (statetable.ColumnConfig, error) {
	config, found := t.Config().Column(name)
	if !found {
		return statetable.ColumnConfig{}, fmt.Errorf("%w: %q", statetable.ErrUnknownColumn, name)
	}

	if allowed != nil && !allowed(config) {
		return statetable.ColumnConfig{}, fmt.Errorf("%w: %q", notAllowed, name)
	}

	return config, nil
}
