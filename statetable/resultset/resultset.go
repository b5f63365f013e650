// Package resultset owns the query state of one table and synchronises it with the data
// endpoint.
//
// State changes go through a reducer (see Reduce) so key-specific side effects fire the same
// way from every call site. Request URLs are built by the advised prepareURL operation: the
// base stage writes the sort and paging parameters, roles wrap it to add their own.
// Records are fetched lazily by Next; a response is applied only if the state that produced
// it is still current, so the table always reflects the last requested state.
package resultset

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/transport"
)

// OpPrepareURL is the name of the advised URL building operation.
const OpPrepareURL = "prepareURL"

// Fetcher executes data endpoint requests.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (statetable.Response, error)
}

// Poster executes write endpoint requests.
type Poster interface {
	Post(ctx context.Context, rawURL string, payload any, token string) (statetable.PostResult, error)
}

// Renderer redraws the table bound to a resultset.
type Renderer func(ctx context.Context) error

// SearchOptions is a batch of state writes.
type SearchOptions map[string]any

// URLArgs is the argument of the prepareURL operation.
type URLArgs struct {
	URL       *RequestURL
	Overrides map[string]any
	State     State

	params *ParamMap
}

// Value returns the per-call override of key, falling back to the state.
func (a *URLArgs) Value(key string) any {
	if value, exists := a.Overrides[key]; exists {
		return value
	}

	return a.State.Get(key)
}

// SetParam writes the query parameter of key from Value, or removes it when the value is falsy.
func (a *URLArgs) SetParam(key string) error {
	wire, err := a.params.Wire(key)
	if err != nil {
		return err
	}

	value := a.Value(key)
	if !truthy(value) {
		a.URL.Query().Del(wire)
		return nil
	}

	a.URL.Query().Set(wire, wireValue(value))

	return nil
}

// Resultset owns the state, parameter map and fetch lifecycle of one table.
type Resultset struct {
	name         string
	target       *advice.Target
	prepare      *advice.Point[*URLArgs, error]
	params       *ParamMap
	fetcher      Fetcher
	poster       Poster
	group        singleflight.Group
	enablePaging bool
	pageSize     int
	maxPageSize  int
	initialState map[string]any

	logger           statetable.Logger
	contextualLogger statetable.ContextualLogger
	metricsCollector statetable.MetricsCollector
	tracingCollector statetable.TracingCollector

	urlMu      sync.Mutex
	requestURL *RequestURL

	mu           sync.Mutex
	state        State
	generation   uint64
	fetchEpoch   uint64
	appliedEpoch uint64
	fetched      bool
	cursor       int
	records      []statetable.Record
	totalRecords int
	hasTotal     bool
	renderer     Renderer
}

// New creates a Resultset for the given data endpoint.
func New(dataURL string, options ...Option) (*Resultset, error) {
	requestURL, err := NewRequestURL(dataURL)
	if err != nil {
		return nil, err
	}

	rs := &Resultset{
		name:        "table",
		params:      NewParamMap(),
		requestURL:  requestURL,
		pageSize:    statetable.DefaultPageSize,
		maxPageSize: statetable.DefaultMaxPageSize,
	}

	for _, option := range options {
		if err := option(rs); err != nil {
			return nil, err
		}
	}

	if rs.target == nil {
		rs.target = advice.NewTarget(rs.name)
	}

	if rs.fetcher == nil || rs.poster == nil {
		client := transport.NewClient()
		if rs.fetcher == nil {
			rs.fetcher = client
		}
		if rs.poster == nil {
			rs.poster = client
		}
	}

	rs.prepare, err = advice.Declare(rs.target, OpPrepareURL, rs.basePrepareURL)
	if err != nil {
		return nil, err
	}

	rs.state = NewState(min(rs.pageSize, rs.maxPageSize))

	if len(rs.initialState) > 0 {
		if err := rs.Search(SearchOptions(rs.initialState)); err != nil {
			return nil, err
		}
	}

	return rs, nil
}

// Name returns the table name.
func (rs *Resultset) Name() string {
	return rs.name
}

// Advice returns the target prepareURL is declared on.
func (rs *Resultset) Advice() *advice.Target {
	return rs.target
}

// Params returns the parameter map.
func (rs *Resultset) Params() *ParamMap {
	return rs.params
}

// PagingEnabled reports whether paging parameters are sent.
func (rs *Resultset) PagingEnabled() bool {
	return rs.enablePaging
}

// Extend adds a role-specific state key with its query parameter name and default value.
// Extending a known key keeps its current value.
func (rs *Resultset) Extend(key, wire string, defaultValue any) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	next, err := rs.state.Extend(key, defaultValue)
	if err != nil {
		return err
	}

	if err := rs.params.Register(key, wire); err != nil {
		return err
	}

	rs.state = next

	return nil
}

// State returns a snapshot of the current state.
func (rs *Resultset) State() State {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.state
}

// Value returns the current value of key.
func (rs *Resultset) Value(key string) any {
	return rs.State().Get(key)
}

// Generation returns the number of state writes so far.
func (rs *Resultset) Generation() uint64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.generation
}

// SetState writes one state key through the reducer.
func (rs *Resultset) SetState(key string, value any) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.setStateLocked(key, value)
}

func (rs *Resultset) setStateLocked(key string, value any) error {
	next, err := Reduce(rs.state, key, value)
	if err != nil {
		return err
	}

	if key == KeyPageSize && next.Int(KeyPageSize) > rs.maxPageSize {
		next, err = Reduce(next, KeyPageSize, rs.maxPageSize)
		if err != nil {
			return err
		}
	}

	rs.state = next
	rs.generation++

	return nil
}

// Search applies a batch of state writes and resets the record cursor. pageSize is written
// first so that an explicit page in the same batch wins over its reset; the remaining keys
// are written in name order. It neither fetches nor renders.
func (rs *Resultset) Search(options SearchOptions) error {
	keys := make([]string, 0, len(options))
	for key := range options {
		if key != KeyPageSize {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if _, exists := options[KeyPageSize]; exists {
		keys = append([]string{KeyPageSize}, keys...)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, key := range keys {
		if err := rs.setStateLocked(key, options[key]); err != nil {
			return err
		}
	}

	rs.resetLocked()

	return nil
}

// BindRenderer sets the function Redraw calls.
func (rs *Resultset) BindRenderer(renderer Renderer) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.renderer = renderer
}

// Redraw resets the cursor and renders the bound table, which fetches the current state.
func (rs *Resultset) Redraw(ctx context.Context) error {
	rs.mu.Lock()
	rs.resetLocked()
	renderer := rs.renderer
	rs.mu.Unlock()

	if renderer == nil {
		return statetable.ErrNoRenderer
	}

	return renderer(ctx)
}

// Reset rewinds the cursor so the next call to Next fetches again.
func (rs *Resultset) Reset() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.resetLocked()
}

func (rs *Resultset) resetLocked() {
	rs.cursor = 0
	rs.fetched = false
}

func (rs *Resultset) basePrepareURL(args *URLArgs) error {
	query := args.URL.Query()
	for _, wire := range []string{WireSort, WireDesc, WirePage, WirePageSize} {
		query.Del(wire)
	}

	keys := []string{KeySortColumn, KeySortDesc}
	if rs.enablePaging {
		keys = append(keys, KeyPage, KeyPageSize)
	}

	for _, key := range keys {
		if err := args.SetParam(key); err != nil {
			return err
		}
	}

	return nil
}

// PrepareURL builds the request URL for the current state. overrides replace state values
// for this call only.
func (rs *Resultset) PrepareURL(overrides map[string]any) (string, error) {
	rawURL, _, err := rs.prepareURL(overrides)
	return rawURL, err
}

func (rs *Resultset) prepareURL(overrides map[string]any) (string, uint64, error) {
	rs.mu.Lock()
	state, generation := rs.state, rs.generation
	rs.mu.Unlock()

	rs.urlMu.Lock()
	defer rs.urlMu.Unlock()

	args := &URLArgs{URL: rs.requestURL, Overrides: overrides, State: state, params: rs.params}
	if err := rs.prepare.Call(args); err != nil {
		return "", 0, err
	}

	return rs.requestURL.String(), generation, nil
}

// Next returns the next record of the current pass. The first call of a pass fetches the
// records for the current state. ok is false once the batch is exhausted.
//
// A fetch whose state was superseded while it was in flight, or which completed after a newer
// fetch was applied, returns ErrStaleResult and leaves the records untouched. A failed fetch
// also keeps the previous records.
func (rs *Resultset) Next(ctx context.Context) (statetable.Record, bool, error) {
	rs.mu.Lock()
	fetched := rs.fetched
	rs.mu.Unlock()

	if !fetched {
		if err := rs.fetchPass(ctx); err != nil {
			return nil, false, err
		}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.cursor >= len(rs.records) {
		return nil, false, nil
	}

	record := rs.records[rs.cursor]
	rs.cursor++

	return record, true, nil
}

// Batch is the record batch of one pass and the fetch epoch that applied it. Epochs grow with
// every fetch, so a pass holding a lower epoch was overtaken by a newer one.
type Batch struct {
	Records []statetable.Record
	Epoch   uint64
}

// Batch returns the whole batch of the current pass, fetching it first like Next does, and
// exhausts the cursor. Callers own the returned records, so concurrent passes cannot consume
// each other's rows.
func (rs *Resultset) Batch(ctx context.Context) (Batch, error) {
	rs.mu.Lock()
	fetched := rs.fetched
	rs.mu.Unlock()

	if !fetched {
		if err := rs.fetchPass(ctx); err != nil {
			return Batch{}, err
		}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	batch := Batch{
		Records: append([]statetable.Record(nil), rs.records[min(rs.cursor, len(rs.records)):]...),
		Epoch:   rs.appliedEpoch,
	}
	rs.cursor = len(rs.records)

	return batch, nil
}

func (rs *Resultset) fetchPass(ctx context.Context) error {
	requestID := newRequestID()

	rawURL, generation, err := rs.prepareURL(nil)
	if err != nil {
		rs.logError(ctx, logMsgPrepareURLFailed, err, logAttrRequestID, requestID)
		return err
	}

	rs.mu.Lock()
	rs.fetchEpoch++
	epoch := rs.fetchEpoch
	rs.mu.Unlock()

	observer, ctx := rs.startRequest(ctx, spanNameFetch, logActionFetch, requestID, rawURL)

	response, err := rs.fetch(ctx, rawURL)
	rs.logRequest(ctx, logActionFetch, rawURL, requestID, observer.elapsed())

	if err != nil {
		observer.finishError(errorTypeTransport, metricFetchDuration)
		rs.logError(ctx, logMsgFetchFailed, err, logAttrURL, rawURL, logAttrRequestID, requestID)

		return err
	}

	rs.mu.Lock()
	if generation != rs.generation || epoch < rs.appliedEpoch {
		current := rs.generation
		rs.mu.Unlock()

		observer.finishStale()
		rs.logWarning(ctx, logMsgStaleDiscarded, logAttrRequestID, requestID,
			logAttrGeneration, generation, "current_generation", current)

		return fmt.Errorf("%w: generation %d superseded by %d", statetable.ErrStaleResult, generation, current)
	}

	rs.appliedEpoch = epoch
	rs.records = response.Records
	rs.totalRecords = response.TotalRecords
	rs.hasTotal = response.HasTotal
	rs.cursor = 0
	rs.fetched = true
	rs.mu.Unlock()

	observer.finishSuccess(len(response.Records), metricFetchDuration)
	rs.logOperation(ctx, logMsgFetchCompleted, logAttrRecordCount, len(response.Records), logAttrRequestID, requestID)

	return nil
}

// fetch de-duplicates concurrent requests for the same URL. The shared request runs detached
// from the caller that started it; each caller stops waiting when its own ctx is done.
func (rs *Resultset) fetch(ctx context.Context, rawURL string) (statetable.Response, error) {
	shared := context.WithoutCancel(ctx)
	results := rs.group.DoChan(rawURL, func() (any, error) {
		return rs.fetcher.Fetch(shared, rawURL)
	})

	select {
	case <-ctx.Done():
		return statetable.Response{}, errors.Join(statetable.ErrFetchFailed, ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return statetable.Response{}, result.Err
		}
		return result.Val.(statetable.Response), nil
	}
}

// FetchWith performs a one-off request with per-call overrides. It does not touch the cursor
// or the records; roles use it for filter values and table metadata.
func (rs *Resultset) FetchWith(ctx context.Context, overrides map[string]any) (statetable.Response, error) {
	requestID := newRequestID()

	rawURL, _, err := rs.prepareURL(overrides)
	if err != nil {
		rs.logError(ctx, logMsgPrepareURLFailed, err, logAttrRequestID, requestID)
		return statetable.Response{}, err
	}

	observer, ctx := rs.startRequest(ctx, spanNameFetch, logActionFetchWith, requestID, rawURL)

	response, err := rs.fetch(ctx, rawURL)
	rs.logRequest(ctx, logActionFetchWith, rawURL, requestID, observer.elapsed())

	if err != nil {
		observer.finishError(errorTypeTransport, metricFetchDuration)
		rs.logError(ctx, logMsgFetchFailed, err, logAttrURL, rawURL, logAttrRequestID, requestID)

		return statetable.Response{}, err
	}

	observer.finishSuccess(len(response.Records), metricFetchDuration)

	return response, nil
}

// Post sends payload to the write endpoint with the verification token.
func (rs *Resultset) Post(ctx context.Context, rawURL string, payload any, token string) (statetable.PostResult, error) {
	requestID := newRequestID()
	observer, ctx := rs.startRequest(ctx, spanNamePost, logActionPost, requestID, rawURL)

	result, err := rs.poster.Post(ctx, rawURL, payload, token)
	rs.logRequest(ctx, logActionPost, rawURL, requestID, observer.elapsed())

	if err != nil {
		observer.finishError(errorTypeTransport, metricPostDuration)
		rs.logError(ctx, logMsgPostFailed, err, logAttrURL, rawURL, logAttrRequestID, requestID)

		return statetable.PostResult{}, err
	}

	observer.finishSuccess(0, metricPostDuration)

	return result, nil
}

// Records returns a copy of the last applied batch.
func (rs *Resultset) Records() []statetable.Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return append([]statetable.Record(nil), rs.records...)
}

// TotalRecords returns the total reported by the last applied response.
func (rs *Resultset) TotalRecords() (int, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.totalRecords, rs.hasTotal
}

// LastPage returns the number of the last page for the current total and page size. Without
// a reported total it is the current page, or the one after it when the last batch was full.
func (rs *Resultset) LastPage() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	pageSize := rs.state.Int(KeyPageSize)
	if rs.hasTotal {
		return LastPage(rs.totalRecords, pageSize)
	}

	page := max(rs.state.Int(KeyPage), 1)
	if pageSize > 0 && len(rs.records) >= pageSize {
		return page + 1
	}

	return page
}

// LastPage returns ceil(totalRecords / pageSize), never less than 1.
func LastPage(totalRecords, pageSize int) int {
	if totalRecords <= 0 || pageSize <= 0 {
		return 1
	}

	return (totalRecords + pageSize - 1) / pageSize
}

// StateFromURL reconstructs state values from the registered query parameters of rawURL.
// Registered keys whose parameter is absent are reported at their default.
func (rs *Resultset) StateFromURL(rawURL string) (map[string]any, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Join(statetable.ErrInvalidDataURL, err)
	}

	query, err := ParseQueryParams(parsed.RawQuery)
	if err != nil {
		return nil, err
	}

	state := rs.State()
	values := make(map[string]any)

	for _, key := range rs.params.Keys() {
		if !state.Has(key) {
			continue
		}

		wire, err := rs.params.Wire(key)
		if err != nil {
			return nil, err
		}

		var raw any
		if value, present := query.Get(wire); present {
			raw = value
		}

		normalised, err := state.Normalise(key, raw)
		if err != nil {
			return nil, err
		}

		values[key] = normalised
	}

	return values, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
