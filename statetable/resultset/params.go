package resultset

import (
	"errors"
	"net/url"
	"strings"

	"github.com/pjfl/statetable/statetable"
)

type queryParam struct {
	name  string
	value string
}

// QueryParams is a query string that keeps parameters in insertion order. Setting an existing
// parameter keeps its position.
type QueryParams struct {
	params []queryParam
}

// ParseQueryParams parses a raw query string, keeping its order.
func ParseQueryParams(rawQuery string) (*QueryParams, error) {
	qp := &QueryParams{}

	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}

		name, value, _ := strings.Cut(part, "=")

		unescapedName, err := url.QueryUnescape(name)
		if err != nil {
			return nil, errors.Join(statetable.ErrInvalidDataURL, err)
		}

		unescapedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, errors.Join(statetable.ErrInvalidDataURL, err)
		}

		qp.Set(unescapedName, unescapedValue)
	}

	return qp, nil
}

// Set sets the value of name, appending it if it is not present yet.
func (qp *QueryParams) Set(name, value string) {
	for i := range qp.params {
		if qp.params[i].name == name {
			qp.params[i].value = value
			return
		}
	}

	qp.params = append(qp.params, queryParam{name: name, value: value})
}

// Get returns the value of name.
func (qp *QueryParams) Get(name string) (string, bool) {
	for _, param := range qp.params {
		if param.name == name {
			return param.value, true
		}
	}

	return "", false
}

// Has reports whether name is present.
func (qp *QueryParams) Has(name string) bool {
	_, exists := qp.Get(name)
	return exists
}

// Del removes name.
func (qp *QueryParams) Del(name string) {
	kept := qp.params[:0]
	for _, param := range qp.params {
		if param.name != name {
			kept = append(kept, param)
		}
	}

	qp.params = kept
}

// Names returns the parameter names in order.
func (qp *QueryParams) Names() []string {
	names := make([]string, 0, len(qp.params))
	for _, param := range qp.params {
		names = append(names, param.name)
	}

	return names
}

// Len returns the number of parameters.
func (qp *QueryParams) Len() int {
	return len(qp.params)
}

// Encode renders the parameters in order, escaped for a query string.
func (qp *QueryParams) Encode() string {
	var b strings.Builder

	for i, param := range qp.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.value))
	}

	return b.String()
}

// RequestURL is the data endpoint URL a resultset reuses across requests. Its query is
// mutated in place, so stages must delete the parameters they do not want.
type RequestURL struct {
	base  url.URL
	query *QueryParams
}

// NewRequestURL parses the data endpoint URL.
func NewRequestURL(rawURL string) (*RequestURL, error) {
	if rawURL == "" {
		return nil, statetable.ErrEmptyDataURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Join(statetable.ErrInvalidDataURL, err)
	}

	query, err := ParseQueryParams(parsed.RawQuery)
	if err != nil {
		return nil, err
	}

	parsed.RawQuery = ""

	return &RequestURL{base: *parsed, query: query}, nil
}

// Query returns the live query parameters.
func (ru *RequestURL) Query() *QueryParams {
	return ru.query
}

// String renders the URL with its current query.
func (ru *RequestURL) String() string {
	u := ru.base
	u.RawQuery = ru.query.Encode()

	return u.String()
}
