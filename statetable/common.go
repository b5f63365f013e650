package statetable

import (
	"errors"
	"fmt"
)

// Configuration errors are programmer errors; they are returned at table construction
// and initialisation time and are never recovered from by the core.
var (
	ErrEmptyTableName             = errors.New("table name must not be empty")
	ErrEmptyDataURL               = errors.New("data url must not be empty")
	ErrInvalidDataURL             = errors.New("data url is not valid")
	ErrEmptyColumnName            = errors.New("column name must not be empty")
	ErrDuplicateColumn            = errors.New("duplicate column name")
	ErrUnknownColumn              = errors.New("unknown column")
	ErrColumnNotSortable          = errors.New("column is not sortable")
	ErrColumnNotFilterable        = errors.New("column is not filterable")
	ErrColumnNotSearchable        = errors.New("column is not searchable")
	ErrUnknownCapability          = errors.New("unknown trait or role")
	ErrCapabilityAlreadyDefined   = errors.New("trait or role already registered")
	ErrUnknownOperation           = errors.New("advice target operation does not exist")
	ErrOperationAlreadyDeclared   = errors.New("advice target operation already declared")
	ErrOperationSignatureMismatch = errors.New("advice does not match the operation signature")
	ErrUnregisteredStateKey       = errors.New("state key has no parameter mapping")
	ErrInvalidStateValue          = errors.New("state value has the wrong kind")
	ErrNoRenderer                 = errors.New("resultset has no renderer bound")
	ErrInvalidConfig              = errors.New("table configuration is not valid")
)

// Transport and data errors.
var (
	ErrFetchFailed            = errors.New("fetching records failed")
	ErrPostFailed             = errors.New("posting data failed")
	ErrDecodingResponseFailed = errors.New("decoding response failed")
	ErrStaleResult            = errors.New("result discarded, state changed while fetching")
	ErrNilFetcher             = errors.New("nil fetcher supplied")
)

// Endpoint errors.
var (
	ErrNilDatabaseConnection  = errors.New("nil database connection supplied")
	ErrEmptyRecordTableName   = errors.New("empty record table name supplied")
	ErrNoColumnsConfigured    = errors.New("no columns configured")
	ErrBuildingQueryFailed    = errors.New("building query failed")
	ErrQueryingRecordsFailed  = errors.New("querying records failed")
	ErrScanningDBRowFailed    = errors.New("scanning db row failed")
	ErrSavingPreferenceFailed = errors.New("saving preference failed")
	ErrVerificationFailed     = errors.New("verification token mismatch")
	ErrInvalidQueryParameter  = errors.New("invalid query parameter")
)

// UnknownCapabilityError names the registry and the trait or role that could not be found.
type UnknownCapabilityError struct {
	Kind string
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("%s %q is not registered", e.Kind, e.Name)
}

// Unwrap allows errors.Is(err, ErrUnknownCapability).
func (e *UnknownCapabilityError) Unwrap() error {
	return ErrUnknownCapability
}

// HTTPStatusError is returned when the data or write endpoint answers with a non-success status.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
	Sentinel   error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.sentinel(), e.URL, e.Status)
}

// Unwrap allows errors.Is(err, ErrFetchFailed) or errors.Is(err, ErrPostFailed).
func (e *HTTPStatusError) Unwrap() error {
	return e.sentinel()
}

func (e *HTTPStatusError) sentinel() error {
	if e.Sentinel == nil {
		return ErrFetchFailed
	}

	return e.Sentinel
}
