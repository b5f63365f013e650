package statetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjfl/statetable/statetable"
)

func Test_ParseConfig_AppliesDefaults(t *testing.T) {
	cfg, err := statetable.ParseConfig([]byte(`{
		"name": "users",
		"data-url": "/api/users",
		"properties": {"enable-paging": true, "no-data-message": "Nothing here"},
		"columns": [
			{"name": "name", "label": "Name", "sortable": true},
			{"name": "email", "displayed": false}
		],
		"roles": {"search": {"role-index": 2, "location": {"control": "top"}}, "paging": {"role-index": 1}}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "users", cfg.Name)
	assert.Equal(t, statetable.DefaultPageSize, cfg.Properties.PageSize)
	assert.Equal(t, statetable.DefaultMaxPageSize, cfg.Properties.MaxPageSize)
	assert.True(t, cfg.Columns[0].IsDisplayed())
	assert.False(t, cfg.Columns[1].IsDisplayed())
	assert.Equal(t, "email", cfg.Columns[1].DisplayLabel())
	assert.Equal(t, []string{"paging", "search"}, cfg.RoleNames())
	assert.Equal(t, "top", cfg.Roles["search"].LocationOf("control", "bottom"))
}

func Test_Config_Validate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         statetable.Config
		expectedErr error
	}{
		{
			name:        "empty name",
			cfg:         statetable.Config{DataURL: "/data"},
			expectedErr: statetable.ErrEmptyTableName,
		},
		{
			name:        "empty data url",
			cfg:         statetable.Config{Name: "t"},
			expectedErr: statetable.ErrEmptyDataURL,
		},
		{
			name: "empty column name",
			cfg: statetable.Config{Name: "t", DataURL: "/data", Columns: []statetable.ColumnConfig{
				{Name: ""},
			}},
			expectedErr: statetable.ErrEmptyColumnName,
		},
		{
			name: "duplicate column",
			cfg: statetable.Config{Name: "t", DataURL: "/data", Columns: []statetable.ColumnConfig{
				{Name: "a"}, {Name: "a"},
			}},
			expectedErr: statetable.ErrDuplicateColumn,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.cfg.Validate(), tc.expectedErr)
		})
	}
}

func Test_ParseConfig_RejectsInvalidJSON(t *testing.T) {
	_, err := statetable.ParseConfig([]byte(`{"name": `))

	assert.ErrorIs(t, err, statetable.ErrInvalidConfig)
}

func Test_RoleConfig_Options(t *testing.T) {
	rc := statetable.RoleConfig{Options: map[string]any{"size": float64(5), "flag": true, "label": "x"}}

	assert.Equal(t, 5, rc.OptionInt("size", 1))
	assert.Equal(t, 7, rc.OptionInt("missing", 7))
	assert.True(t, rc.OptionBool("flag", false))
	assert.Equal(t, "x", rc.OptionString("label", "y"))
	assert.Equal(t, "y", rc.OptionString("missing", "y"))
}
