package resultset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pjfl/statetable/statetable"
)

// Built-in state keys.
const (
	KeyPage         = "page"
	KeyPageSize     = "pageSize"
	KeySortColumn   = "sortColumn"
	KeySortDesc     = "sortDesc"
	KeyFilterColumn = "filterColumn"
	KeyFilterValue  = "filterValue"
	KeySearchColumn = "searchColumn"
	KeySearchValue  = "searchValue"
)

// State keys introduced by the built-in roles.
const (
	KeyShowInactive       = "showInactive"
	KeyDownload           = "download"
	KeyTableMeta          = "tableMeta"
	KeyFilterColumnValues = "filterColumnValues"
)

// State is an immutable snapshot of a table's query state. Every key has a default whose
// type (int, bool or string) fixes the type of every value written to the key.
type State struct {
	values   map[string]any
	defaults map[string]any
}

// sideEffects lists the follow-up writes a key triggers, applied after the key itself.
var sideEffects = map[string]func(values map[string]any){
	KeyPageSize: func(values map[string]any) {
		values[KeyPage] = 1
	},
}

// NewState returns the state holding the paging and sorting keys at their defaults. Roles add
// their own keys with Extend.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = statetable.DefaultPageSize
	}

	defaults := map[string]any{
		KeyPage:       1,
		KeyPageSize:   pageSize,
		KeySortColumn: "",
		KeySortDesc:   false,
	}

	values := make(map[string]any, len(defaults))
	for key, value := range defaults {
		values[key] = value
	}

	return State{values: values, defaults: defaults}
}

// Reduce returns a copy of state with key set to value and the key's side effects applied.
func Reduce(state State, key string, value any) (State, error) {
	normalised, err := state.Normalise(key, value)
	if err != nil {
		return state, err
	}

	next := state.clone()
	next.values[key] = normalised

	if effect, exists := sideEffects[key]; exists {
		effect(next.values)
	}

	return next, nil
}

// Extend adds key with its default. Extending an existing key with a default of the same type
// keeps the current value.
func (s State) Extend(key string, defaultValue any) (State, error) {
	if kindOf(defaultValue) == kindUnknown {
		return s, fmt.Errorf("%w: default of %q is %T", statetable.ErrInvalidStateValue, key, defaultValue)
	}

	if existing, exists := s.defaults[key]; exists {
		if kindOf(existing) != kindOf(defaultValue) {
			return s, fmt.Errorf("%w: %q redefined from %T to %T",
				statetable.ErrInvalidStateValue, key, existing, defaultValue)
		}

		return s, nil
	}

	next := s.clone()
	next.defaults[key] = defaultValue
	next.values[key] = defaultValue

	return next, nil
}

// Has reports whether key is part of the state.
func (s State) Has(key string) bool {
	_, exists := s.defaults[key]
	return exists
}

// Get returns the current value of key, or nil for unknown keys.
func (s State) Get(key string) any {
	return s.values[key]
}

// Int returns the value of an int key, zero otherwise.
func (s State) Int(key string) int {
	value, _ := s.values[key].(int)
	return value
}

// Bool returns the value of a bool key, false otherwise.
func (s State) Bool(key string) bool {
	value, _ := s.values[key].(bool)
	return value
}

// String returns the value of a string key, empty otherwise.
func (s State) String(key string) string {
	value, _ := s.values[key].(string)
	return value
}

// Keys returns every key of the state, sorted.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.defaults))
	for key := range s.defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Values returns a copy of the current values.
func (s State) Values() map[string]any {
	values := make(map[string]any, len(s.values))
	for key, value := range s.values {
		values[key] = value
	}

	return values
}

// Normalise converts value to the type of key's default. nil means the default.
func (s State) Normalise(key string, value any) (any, error) {
	defaultValue, exists := s.defaults[key]
	if !exists {
		return nil, fmt.Errorf("%w: %q", statetable.ErrUnregisteredStateKey, key)
	}

	if value == nil {
		return defaultValue, nil
	}

	var (
		normalised any
		ok         bool
	)

	switch kindOf(defaultValue) {
	case kindInt:
		normalised, ok = toInt(value)
	case kindBool:
		normalised, ok = toBool(value)
	case kindString:
		normalised, ok = toString(value)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %q cannot hold %T %v", statetable.ErrInvalidStateValue, key, value, value)
	}

	return normalised, nil
}

func (s State) clone() State {
	next := State{
		values:   make(map[string]any, len(s.values)+1),
		defaults: make(map[string]any, len(s.defaults)+1),
	}

	for key, value := range s.values {
		next.values[key] = value
	}

	for key, value := range s.defaults {
		next.defaults[key] = value
	}

	return next
}

type valueKind int

const (
	kindUnknown valueKind = iota
	kindInt
	kindBool
	kindString
)

func kindOf(value any) valueKind {
	switch value.(type) {
	case int:
		return kindInt
	case bool:
		return kindBool
	case string:
		return kindString
	default:
		return kindUnknown
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, true
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "off", "no":
			return false, true
		case "1", "true", "on", "yes":
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

func toString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case int, int64, float64, bool:
		return statetable.Stringify(v), true
	default:
		return "", false
	}
}

// truthy reports whether value should produce a query parameter.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	default:
		return true
	}
}

// wireValue renders a state value as a query parameter value.
func wireValue(value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ",")
	default:
		return statetable.Stringify(v)
	}
}
