package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/roles"
)

// RecordQuery is a parsed data endpoint request.
type RecordQuery struct {
	SortColumn         string
	SortDesc           bool
	Page               int
	PageSize           int
	SearchColumn       string
	SearchValue        string
	FilterColumn       string
	FilterValue        string
	ShowInactive       bool
	FilterColumnValues string
	TableMeta          bool
	Download           string
}

// ParseRecordQuery reads a RecordQuery from request parameters. Absent parameters keep their
// zero value; malformed numbers and booleans fail with ErrInvalidQueryParameter.
func ParseRecordQuery(values url.Values) (RecordQuery, error) {
	var (
		query RecordQuery
		errs  []error
	)

	query.SortColumn = values.Get(resultset.WireSort)
	query.SearchColumn = values.Get(roles.WireSearchColumn)
	query.SearchValue = values.Get(roles.WireSearch)
	query.FilterColumn = values.Get(roles.WireFilterColumn)
	query.FilterValue = values.Get(roles.WireFilterValue)
	query.FilterColumnValues = values.Get(roles.WireFilterColumnValues)
	query.Download = values.Get(roles.WireDownload)

	query.SortDesc, errs = parseBool(values, resultset.WireDesc, errs)
	query.ShowInactive, errs = parseBool(values, roles.WireShowInactive, errs)
	query.TableMeta, errs = parseBool(values, roles.WireTableMeta, errs)
	query.Page, errs = parseInt(values, resultset.WirePage, errs)
	query.PageSize, errs = parseInt(values, resultset.WirePageSize, errs)

	if len(errs) > 0 {
		return RecordQuery{}, errors.Join(append([]error{statetable.ErrInvalidQueryParameter}, errs...)...)
	}

	return query, nil
}

func parseBool(values url.Values, name string, errs []error) (bool, []error) {
	raw := values.Get(name)
	if raw == "" {
		return false, errs
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s: %w", name, err))
	}

	return parsed, errs
}

func parseInt(values url.Values, name string, errs []error) (int, []error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, errs
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, append(errs, fmt.Errorf("%s: %q is not a page number", name, raw))
	}

	return parsed, errs
}

// validate checks the requested columns against the column flags.
func (s *Server) validate(query RecordQuery) error {
	checks := []struct {
		name    string
		allowed func(statetable.ColumnConfig) bool
	}{
		{name: query.SortColumn, allowed: func(c statetable.ColumnConfig) bool { return c.Sortable }},
		{name: query.SearchColumn, allowed: func(statetable.ColumnConfig) bool { return true }},
		{name: query.FilterColumn, allowed: func(c statetable.ColumnConfig) bool { return c.Filterable }},
		{name: query.FilterColumnValues, allowed: func(c statetable.ColumnConfig) bool { return c.Filterable }},
	}

	for _, check := range checks {
		if check.name == "" {
			continue
		}

		column, found := s.column(check.name)
		if !found || !check.allowed(column) {
			return fmt.Errorf("%w: column %q", statetable.ErrInvalidQueryParameter, check.name)
		}
	}

	return nil
}

func (s *Server) column(name string) (statetable.ColumnConfig, bool) {
	for _, column := range s.columns {
		if column.Name == name {
			return column, true
		}
	}

	return statetable.ColumnConfig{}, false
}

// conditions returns the WHERE expressions of query. The filter is left out when
// withFilter is false.
func (s *Server) conditions(query RecordQuery, withFilter bool) []exp.Expression {
	var where []exp.Expression

	if query.SearchValue != "" {
		pattern := "%" + strings.ToLower(query.SearchValue) + "%"

		var searched []string
		if query.SearchColumn != "" {
			searched = []string{query.SearchColumn}
		} else {
			for _, column := range s.columns {
				if column.Searchable {
					searched = append(searched, column.Name)
				}
			}
		}

		var matches []exp.Expression
		for _, name := range searched {
			matches = append(matches, goqu.L("LOWER(?) LIKE ?", goqu.I(name), pattern))
		}
		if len(matches) > 0 {
			where = append(where, goqu.Or(matches...))
		}
	}

	if withFilter && query.FilterColumn != "" {
		where = append(where, goqu.I(query.FilterColumn).Eq(query.FilterValue))
	}

	if s.activeColumn != "" && !query.ShowInactive {
		where = append(where, goqu.I(s.activeColumn).IsTrue())
	}

	return where
}

func (s *Server) columnNames() []any {
	names := make([]any, 0, len(s.columns))
	for _, column := range s.columns {
		names = append(names, goqu.I(column.Name))
	}

	return names
}

// buildSelectQuery selects one page of records, or every record when the page size is zero.
func (s *Server) buildSelectQuery(query RecordQuery) (string, error) {
	stmt := goqu.Dialect(s.dialect).
		From(s.tableName).
		Select(s.columnNames()...).
		Where(s.conditions(query, true)...)

	if query.SortColumn != "" {
		order := goqu.I(query.SortColumn).Asc()
		if query.SortDesc {
			order = goqu.I(query.SortColumn).Desc()
		}
		stmt = stmt.Order(order)
	}

	if pageSize := min(query.PageSize, s.maxPageSize); pageSize > 0 {
		page := max(query.Page, 1)
		stmt = stmt.Limit(uint(pageSize)).Offset(uint((page - 1) * pageSize))
	}

	sqlQuery, _, err := stmt.ToSQL()
	if err != nil {
		return "", errors.Join(statetable.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// buildCountQuery counts every record matching query.
func (s *Server) buildCountQuery(query RecordQuery) (string, error) {
	sqlQuery, _, err := goqu.Dialect(s.dialect).
		From(s.tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(s.conditions(query, true)...).
		ToSQL()
	if err != nil {
		return "", errors.Join(statetable.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// buildValuesQuery selects the distinct values of column, ignoring the current filter.
func (s *Server) buildValuesQuery(column string, query RecordQuery) (string, error) {
	sqlQuery, _, err := goqu.Dialect(s.dialect).
		From(s.tableName).
		Select(goqu.I(column)).
		Distinct().
		Where(s.conditions(query, false)...).
		Order(goqu.I(column).Asc()).
		ToSQL()
	if err != nil {
		return "", errors.Join(statetable.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (s *Server) buildInsertPreferenceQuery(id string, preferences statetable.Preferences, data []byte) (string, error) {
	sqlQuery, _, err := goqu.Dialect(s.dialect).
		Insert(s.preferenceTableName).
		Rows(goqu.Record{
			colPreferenceID:    id,
			colPreferenceTable: preferences.Table,
			colPreferenceData:  string(data),
		}).
		ToSQL()
	if err != nil {
		return "", errors.Join(statetable.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

func (s *Server) buildLoadPreferenceQuery(tableName string) (string, error) {
	sqlQuery, _, err := goqu.Dialect(s.dialect).
		From(s.preferenceTableName).
		Select(colPreferenceData).
		Where(goqu.C(colPreferenceTable).Eq(tableName)).
		Order(goqu.C(colPreferenceID).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return "", errors.Join(statetable.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}
