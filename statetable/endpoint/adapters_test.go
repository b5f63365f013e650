package endpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/endpoint"
	"github.com/pjfl/statetable/testutil/endpointdb"
)

const (
	adapterRecordTable     = "statetable_adapter_people"
	adapterPreferenceTable = "statetable_adapter_preferences"
)

func createAdapterWrapper(t *testing.T) *endpointdb.Wrapper {
	t.Helper()

	wrapper := endpointdb.CreateWrapper(t,
		endpoint.WithTableName(adapterRecordTable),
		endpoint.WithPreferenceTableName(adapterPreferenceTable),
		endpoint.WithTableConfig(peopleConfig("http://unused")),
		endpoint.WithActiveColumn("active"),
	)

	wrapper.Exec(t,
		`DROP TABLE IF EXISTS `+adapterRecordTable,
		`DROP TABLE IF EXISTS `+adapterPreferenceTable,
		`CREATE TABLE `+adapterRecordTable+` (name TEXT, email TEXT, role TEXT, active BOOLEAN)`,
		`INSERT INTO `+adapterRecordTable+` VALUES
			('alice', 'alice@x.test', 'admin', TRUE),
			('bob', 'bob@x.test', 'user', TRUE),
			('carol', 'carol@x.test', 'user', FALSE)`,
	)
	require.NoError(t, wrapper.Server.CreatePreferenceTable(context.Background()))

	return wrapper
}

func Test_Adapters_QueryValuesAndPreferences(t *testing.T) {
	wrapper := createAdapterWrapper(t)
	server := wrapper.Server
	ctx := context.Background()

	result, err := server.Query(ctx, endpoint.RecordQuery{SortColumn: "name", SortDesc: true, Page: 1, PageSize: 1})
	require.NoError(t, err, wrapper.Type)
	assert.Equal(t, []string{"bob"}, names(result.Records))
	assert.Equal(t, 2, result.TotalRecords)

	result, err = server.Query(ctx, endpoint.RecordQuery{SearchValue: "CAR", ShowInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, names(result.Records))

	values, err := server.Values(ctx, "role", endpoint.RecordQuery{ShowInactive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user"}, values)

	preferences := statetable.Preferences{Table: "people", Columns: []string{"name"}, PageSize: 5}
	_, err = server.SavePreferences(ctx, preferences)
	require.NoError(t, err)

	loaded, found, err := server.LoadPreferences(ctx, "people")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, preferences, loaded)
}
