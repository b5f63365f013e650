package statetable

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Response keys of the data and write endpoints.
const (
	ResponseKeyRecords      = "records"
	ResponseKeyTotalRecords = "total-records"
	ResponseKeyLocation     = "location"
)

// Cell augmentation keys, the only keys recognised on an object-valued cell.
const (
	CellKeyValue  = "value"
	CellKeyLink   = "link"
	CellKeyAppend = "append"
	CellKeyTags   = "tags"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one row record as returned by the data endpoint, keyed by column name.
type Record map[string]any

// CellValue is the normalised shape of one record field.
type CellValue struct {
	Value   any
	Link    string
	Append  any
	Tags    []string
	Present bool
}

// Cell returns the normalised value of the named field. A scalar becomes the plain value; an
// object contributes its value, link, append and tags entries. Missing fields yield an absent
// CellValue rather than an error.
func (r Record) Cell(name string) CellValue {
	raw, ok := r[name]
	if !ok {
		return CellValue{}
	}

	object, isObject := raw.(map[string]any)
	if !isObject {
		return CellValue{Value: raw, Present: true}
	}

	cell := CellValue{Value: object[CellKeyValue], Append: object[CellKeyAppend], Present: true}

	if link, ok := object[CellKeyLink].(string); ok {
		cell.Link = link
	}

	if tags, ok := object[CellKeyTags].([]any); ok {
		for _, tag := range tags {
			if tag == nil {
				continue
			}
			cell.Tags = append(cell.Tags, fmt.Sprint(tag))
		}
	}

	return cell
}

// Text renders the plain value as text; absent and nil values render empty.
func (cv CellValue) Text() string {
	return Stringify(cv.Value)
}

// Stringify renders a decoded JSON value as display text.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%g", v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Response is a decoded data endpoint response.
type Response struct {
	Records      []Record
	TotalRecords int
	HasTotal     bool
	Raw          map[string]any
}

// DecodeResponse decodes a data endpoint response. Only invalid JSON is an error; absent
// fields leave the corresponding Response fields empty.
func DecodeResponse(data []byte) (Response, error) {
	raw := map[string]any{}

	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return Response{}, errors.Join(ErrDecodingResponseFailed, err)
	}

	response := Response{Raw: raw}

	if records, ok := raw[ResponseKeyRecords].([]any); ok {
		response.Records = make([]Record, 0, len(records))
		for _, item := range records {
			record, isObject := item.(map[string]any)
			if !isObject {
				record = map[string]any{}
			}
			response.Records = append(response.Records, Record(record))
		}
	}

	if total, ok := raw[ResponseKeyTotalRecords].(float64); ok {
		response.TotalRecords = int(total)
		response.HasTotal = true
	}

	return response, nil
}

// EncodeResponse renders records and total in the data endpoint wire format.
func EncodeResponse(records []Record, totalRecords int) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}

	return jsonAPI.Marshal(map[string]any{
		ResponseKeyRecords:      records,
		ResponseKeyTotalRecords: totalRecords,
	})
}

// PostResult is a decoded write endpoint response.
type PostResult struct {
	Location string
	Raw      map[string]any
}

// DecodePostResult decodes a write endpoint response. An empty body is not an error.
func DecodePostResult(data []byte) (PostResult, error) {
	if len(data) == 0 {
		return PostResult{}, nil
	}

	raw := map[string]any{}
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return PostResult{}, errors.Join(ErrDecodingResponseFailed, err)
	}

	result := PostResult{Raw: raw}
	if location, ok := raw[ResponseKeyLocation].(string); ok {
		result.Location = location
	}

	return result, nil
}

// MarshalJSON encodes any value with the package JSON configuration.
func MarshalJSON(value any) ([]byte, error) {
	return jsonAPI.Marshal(value)
}

// UnmarshalJSON decodes data with the package JSON configuration.
func UnmarshalJSON(data []byte, value any) error {
	return jsonAPI.Unmarshal(data, value)
}

// Preferences is the payload the preference role posts to the write endpoint.
type Preferences struct {
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	PageSize   int      `json:"page_size"`
	SortColumn string   `json:"sort_column,omitempty"`
	SortDesc   bool     `json:"sort_desc,omitempty"`
}
