package statetable

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// Default paging values applied when the configuration leaves them unset.
const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 1000
)

// Config is the declarative description of one table instance. The core reads only the
// keys declared here; everything else in the embedded configuration is ignored.
type Config struct {
	Name       string                `json:"name" mapstructure:"name"`
	DataURL    string                `json:"data-url" mapstructure:"data-url"`
	Properties Properties            `json:"properties" mapstructure:"properties"`
	Columns    []ColumnConfig        `json:"columns" mapstructure:"columns"`
	Roles      map[string]RoleConfig `json:"roles" mapstructure:"roles"`
	RowTraits  []string              `json:"row-traits" mapstructure:"row-traits"`
}

// Properties holds table-wide settings.
type Properties struct {
	EnablePaging  bool   `json:"enable-paging" mapstructure:"enable-paging"`
	PageSize      int    `json:"page-size" mapstructure:"page-size"`
	MaxPageSize   int    `json:"max-page-size" mapstructure:"max-page-size"`
	NoDataMessage string `json:"no-data-message" mapstructure:"no-data-message"`
	SortColumn    string `json:"sort-column" mapstructure:"sort-column"`
	SortDesc      bool   `json:"sort-desc" mapstructure:"sort-desc"`
	VerifyToken   string `json:"verify-token" mapstructure:"verify-token"`
	Caption       string `json:"caption" mapstructure:"caption"`
}

// ColumnConfig describes one data field of the table.
type ColumnConfig struct {
	Name         string         `json:"name" mapstructure:"name"`
	Label        string         `json:"label" mapstructure:"label"`
	Sortable     bool           `json:"sortable" mapstructure:"sortable"`
	Filterable   bool           `json:"filterable" mapstructure:"filterable"`
	Searchable   bool           `json:"searchable" mapstructure:"searchable"`
	Displayed    *bool          `json:"displayed" mapstructure:"displayed"`
	Downloadable bool           `json:"downloadable" mapstructure:"downloadable"`
	Traits       []string       `json:"traits" mapstructure:"traits"`
	Options      map[string]any `json:"options" mapstructure:"options"`
	Position     int            `json:"position" mapstructure:"position"`
}

// RoleConfig carries the per-role settings read from the configuration.
type RoleConfig struct {
	Location map[string]string `json:"location" mapstructure:"location"`
	Index    int               `json:"role-index" mapstructure:"role-index"`
	Apply    RoleApply         `json:"apply" mapstructure:"apply"`
	Options  map[string]any    `json:"options" mapstructure:"options"`
}

// RoleApply tells the table whether a role is applied before column construction.
type RoleApply struct {
	Before bool `json:"before" mapstructure:"before"`
}

// ParseConfig decodes an embedded JSON table configuration and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// WithDefaults returns a copy with unset paging properties defaulted.
func (c Config) WithDefaults() Config {
	if c.Properties.PageSize <= 0 {
		c.Properties.PageSize = DefaultPageSize
	}

	if c.Properties.MaxPageSize <= 0 {
		c.Properties.MaxPageSize = DefaultMaxPageSize
	}

	return c
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Name == "" {
		return ErrEmptyTableName
	}

	if c.DataURL == "" {
		return ErrEmptyDataURL
	}

	if _, err := url.Parse(c.DataURL); err != nil {
		return errors.Join(ErrInvalidDataURL, err)
	}

	seen := make(map[string]struct{}, len(c.Columns))
	for _, column := range c.Columns {
		if column.Name == "" {
			return ErrEmptyColumnName
		}

		if _, exists := seen[column.Name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, column.Name)
		}

		seen[column.Name] = struct{}{}
	}

	return nil
}

// Column returns the configuration of the named column.
func (c Config) Column(name string) (ColumnConfig, bool) {
	for _, column := range c.Columns {
		if column.Name == name {
			return column, true
		}
	}

	return ColumnConfig{}, false
}

// RoleNames returns the configured role names ordered by role-index, ties broken by name.
func (c Config) RoleNames() []string {
	names := make([]string, 0, len(c.Roles))
	for name := range c.Roles {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		left, right := c.Roles[names[i]], c.Roles[names[j]]
		if left.Index != right.Index {
			return left.Index < right.Index
		}

		return names[i] < names[j]
	})

	return names
}

// IsDisplayed reports whether the column is rendered; columns are displayed unless told otherwise.
func (cc ColumnConfig) IsDisplayed() bool {
	return cc.Displayed == nil || *cc.Displayed
}

// DisplayLabel returns the label, falling back to the column name.
func (cc ColumnConfig) DisplayLabel() string {
	if cc.Label != "" {
		return cc.Label
	}

	return cc.Name
}

// OptionString returns a string option or the fallback.
func (cc ColumnConfig) OptionString(key, fallback string) string {
	return optionString(cc.Options, key, fallback)
}

// OptionString returns a string option or the fallback.
func (rc RoleConfig) OptionString(key, fallback string) string {
	return optionString(rc.Options, key, fallback)
}

// OptionInt returns an integer option or the fallback.
func (cc ColumnConfig) OptionInt(key string, fallback int) int {
	return optionInt(cc.Options, key, fallback)
}

// OptionBool returns a boolean option or the fallback.
func (cc ColumnConfig) OptionBool(key string, fallback bool) bool {
	return optionBool(cc.Options, key, fallback)
}

// OptionInt returns an integer option or the fallback.
func (rc RoleConfig) OptionInt(key string, fallback int) int {
	return optionInt(rc.Options, key, fallback)
}

// OptionBool returns a boolean option or the fallback.
func (rc RoleConfig) OptionBool(key string, fallback bool) bool {
	return optionBool(rc.Options, key, fallback)
}

// OptionStrings returns a list option. JSON arrays decode as []any.
func (rc RoleConfig) OptionStrings(key string) []string {
	switch value := rc.Options[key].(type) {
	case []string:
		return value
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok {
				items = append(items, text)
			}
		}
		return items
	default:
		return nil
	}
}

// LocationOf returns the render slot for the given location key or the fallback.
func (rc RoleConfig) LocationOf(key, fallback string) string {
	if value, ok := rc.Location[key]; ok && value != "" {
		return value
	}

	return fallback
}

func optionString(options map[string]any, key, fallback string) string {
	if value, ok := options[key].(string); ok && value != "" {
		return value
	}

	return fallback
}

// optionInt accepts the integer types and the float64 JSON numbers decode to.
func optionInt(options map[string]any, key string, fallback int) int {
	switch value := options[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

func optionBool(options map[string]any, key string, fallback bool) bool {
	if value, ok := options[key].(bool); ok {
		return value
	}

	return fallback
}
