package endpoint

import (
	"encoding/csv"
	"errors"
	"net/http"
	"path"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/transport"
)

// Download formats the server can produce.
const FormatCSV = "csv"

const (
	responseKeyTableMeta = "table-meta"
	responseKeyError     = "error"

	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	headerAllow              = "Allow"
	contentTypeJSON          = "application/json"
	contentTypeCSV           = "text/csv"
)

// ColumnMeta describes one column in a table-meta response.
type ColumnMeta struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Sortable   bool   `json:"sortable"`
	Searchable bool   `json:"searchable"`
	Filterable bool   `json:"filterable"`
}

// ServeHTTP answers GET data requests and POST preference writes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.serveGet(w, r)
	case http.MethodPost:
		s.servePost(w, r)
	default:
		w.Header().Set(headerAllow, http.MethodGet+", "+http.MethodPost)
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New(http.StatusText(http.StatusMethodNotAllowed)))
	}
}

func (s *Server) serveGet(w http.ResponseWriter, r *http.Request) {
	query, err := ParseRecordQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	switch {
	case query.TableMeta:
		s.writeJSON(w, r, http.StatusOK, map[string]any{responseKeyTableMeta: map[string]any{
			"name":    s.name,
			"columns": s.columnMeta(),
		}})

	case query.FilterColumnValues != "":
		values, err := s.Values(r.Context(), query.FilterColumnValues, query)
		if err != nil {
			s.writeError(w, r, statusOf(err), err)
			return
		}

		records := make([]statetable.Record, 0, len(values))
		for _, value := range values {
			records = append(records, statetable.Record{query.FilterColumnValues: value})
		}
		s.writeRecords(w, r, records, len(records))

	case query.Download != "":
		s.serveDownload(w, r, query)

	default:
		result, err := s.Query(r.Context(), query)
		if err != nil {
			s.writeError(w, r, statusOf(err), err)
			return
		}

		s.writeRecords(w, r, result.Records, result.TotalRecords)
	}
}

func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request, query RecordQuery) {
	if query.Download != FormatCSV {
		s.writeError(w, r, http.StatusBadRequest, errors.Join(statetable.ErrInvalidQueryParameter, errors.New("unsupported download format "+query.Download)))
		return
	}

	query.Page, query.PageSize = 0, 0

	result, err := s.Query(r.Context(), query)
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}

	columns := s.downloadColumns()

	w.Header().Set(headerContentType, contentTypeCSV)
	w.Header().Set(headerContentDisposition, `attachment; filename="`+s.name+`.csv"`)
	w.WriteHeader(http.StatusOK)

	out := csv.NewWriter(w)
	header := make([]string, 0, len(columns))
	for _, column := range columns {
		header = append(header, column.DisplayLabel())
	}
	_ = out.Write(header)

	for _, record := range result.Records {
		line := make([]string, 0, len(columns))
		for _, column := range columns {
			line = append(line, record.Cell(column.Name).Text())
		}
		_ = out.Write(line)
	}

	out.Flush()
	if err := out.Error(); err != nil {
		s.logError(r.Context(), logMsgRequestFailed, err)
	}
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.Join(statetable.ErrInvalidQueryParameter, err))
		return
	}

	if s.verifyToken != "" && r.PostForm.Get(transport.FormFieldVerify) != s.verifyToken {
		s.writeError(w, r, http.StatusForbidden, statetable.ErrVerificationFailed)
		return
	}

	var preferences statetable.Preferences
	if err := statetable.UnmarshalJSON([]byte(r.PostForm.Get(transport.FormFieldData)), &preferences); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.Join(statetable.ErrInvalidQueryParameter, err))
		return
	}

	id, err := s.SavePreferences(r.Context(), preferences)
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, map[string]any{
		statetable.ResponseKeyLocation: path.Join(r.URL.Path, id),
	})
}

func (s *Server) columnMeta() []ColumnMeta {
	meta := make([]ColumnMeta, 0, len(s.columns))
	for _, column := range s.columns {
		meta = append(meta, ColumnMeta{
			Name:       column.Name,
			Label:      column.DisplayLabel(),
			Sortable:   column.Sortable,
			Searchable: column.Searchable,
			Filterable: column.Filterable,
		})
	}

	return meta
}

// downloadColumns returns the downloadable columns, or every column when none is flagged.
func (s *Server) downloadColumns() []statetable.ColumnConfig {
	var columns []statetable.ColumnConfig
	for _, column := range s.columns {
		if column.Downloadable {
			columns = append(columns, column)
		}
	}

	if len(columns) == 0 {
		return s.columns
	}

	return columns
}

func (s *Server) writeRecords(w http.ResponseWriter, r *http.Request, records []statetable.Record, total int) {
	body, err := statetable.EncodeResponse(records, total)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, value any) {
	body, err := statetable.MarshalJSON(value)
	if err != nil {
		s.logError(r.Context(), logMsgRequestFailed, err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logError(r.Context(), logMsgRequestFailed, err, logAttrStatus, status)
	} else {
		s.logWarning(r.Context(), logMsgRequestFailed, logAttrError, err.Error(), logAttrStatus, status)
	}

	s.writeJSON(w, r, status, map[string]any{responseKeyError: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, statetable.ErrInvalidQueryParameter):
		return http.StatusBadRequest
	case errors.Is(err, statetable.ErrVerificationFailed):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
