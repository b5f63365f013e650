package resultset_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/testutil/observability/testdoubles"
)

const dataURL = "http://example.test/users"

func newResultset(t *testing.T, fetcher *testdoubles.FetcherStub, options ...resultset.Option) *resultset.Resultset {
	t.Helper()

	allOptions := append([]resultset.Option{
		resultset.WithName("users"),
		resultset.WithFetcher(fetcher),
		resultset.WithPoster(fetcher),
	}, options...)

	rs, err := resultset.New(dataURL, allOptions...)
	require.NoError(t, err)

	return rs
}

// searchStage adds the search parameters the way the search role does.
func searchStage(t *testing.T, rs *resultset.Resultset) {
	t.Helper()

	require.NoError(t, rs.Extend(resultset.KeySearchColumn, "search_column", ""))
	require.NoError(t, rs.Extend(resultset.KeySearchValue, "search", ""))
	require.NoError(t, advice.Wrap(rs.Advice(), resultset.OpPrepareURL,
		func(original advice.Op[*resultset.URLArgs, error], args *resultset.URLArgs) error {
			if err := original(args); err != nil {
				return err
			}
			if err := args.SetParam(resultset.KeySearchColumn); err != nil {
				return err
			}
			return args.SetParam(resultset.KeySearchValue)
		}))
}

func Test_New_FailsForInvalidOptions(t *testing.T) {
	_, err := resultset.New("")
	assert.ErrorIs(t, err, statetable.ErrEmptyDataURL)

	_, err = resultset.New(dataURL, resultset.WithFetcher(nil))
	assert.ErrorIs(t, err, statetable.ErrNilFetcher)

	_, err = resultset.New(dataURL, resultset.WithPageSize(0))
	assert.ErrorIs(t, err, statetable.ErrInvalidStateValue)

	_, err = resultset.New(dataURL, resultset.WithInitialState(map[string]any{"colour": "red"}))
	assert.ErrorIs(t, err, statetable.ErrUnregisteredStateKey)
}

func Test_New_AppliesInitialState(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(),
		resultset.WithPageSize(10),
		resultset.WithInitialState(map[string]any{resultset.KeySortColumn: "name", resultset.KeyPage: 3}))

	state := rs.State()
	assert.Equal(t, "name", state.String(resultset.KeySortColumn))
	assert.Equal(t, 3, state.Int(resultset.KeyPage))
	assert.Equal(t, 10, state.Int(resultset.KeyPageSize))
}

func Test_Search_PageSizeForcesFirstPage(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	require.NoError(t, rs.SetState(resultset.KeyPage, 4))

	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeyPageSize: 50}))

	assert.Equal(t, 1, rs.State().Int(resultset.KeyPage))
	assert.Equal(t, 50, rs.State().Int(resultset.KeyPageSize))
}

func Test_Search_ExplicitPageWinsInSameBatch(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())

	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeyPage: 3, resultset.KeyPageSize: 50}))

	assert.Equal(t, 3, rs.State().Int(resultset.KeyPage))
}

func Test_Search_DoesNotFetch(t *testing.T) {
	fetcher := testdoubles.NewStaticFetcherStub()
	rs := newResultset(t, fetcher)
	before := rs.Generation()

	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeySortColumn: "name", resultset.KeySortDesc: true}))

	assert.Empty(t, fetcher.URLs())
	assert.Equal(t, before+2, rs.Generation())
}

func Test_Search_RejectsKeysNoRoleExtended(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	before := rs.Generation()

	err := rs.Search(resultset.SearchOptions{resultset.KeySearchValue: "alice"})

	assert.ErrorIs(t, err, statetable.ErrUnregisteredStateKey)
	assert.False(t, rs.State().Has(resultset.KeySearchValue))
	assert.Equal(t, before, rs.Generation())

	searchStage(t, rs)
	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeySearchValue: "alice"}))
	assert.Equal(t, "alice", rs.State().String(resultset.KeySearchValue))
}

func Test_SetState_CapsPageSize(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(), resultset.WithMaxPageSize(100))

	require.NoError(t, rs.SetState(resultset.KeyPageSize, 5000))

	assert.Equal(t, 100, rs.State().Int(resultset.KeyPageSize))
}

func Test_PrepareURL_WritesSortAndPagingInOrder(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(), resultset.WithPaging(true), resultset.WithPageSize(10))
	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeySortColumn: "name", resultset.KeySortDesc: true}))

	rawURL, err := rs.PrepareURL(nil)

	require.NoError(t, err)
	assert.Equal(t, dataURL+"?sort=name&desc=true&page=1&page_size=10", rawURL)
}

func Test_PrepareURL_OmitsPagingWhenDisabled(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	require.NoError(t, rs.SetState(resultset.KeySortColumn, "name"))

	rawURL, err := rs.PrepareURL(nil)

	require.NoError(t, err)
	assert.Equal(t, dataURL+"?sort=name", rawURL)
}

func Test_PrepareURL_RemovesParametersWhenStateTurnsFalsy(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(), resultset.WithPaging(true))
	searchStage(t, rs)

	require.NoError(t, rs.Search(resultset.SearchOptions{
		resultset.KeySortDesc:     true,
		resultset.KeySearchColumn: "name",
		resultset.KeySearchValue:  "a b&c",
	}))

	withSearch, err := rs.PrepareURL(nil)
	require.NoError(t, err)
	assert.Contains(t, withSearch, "search_column=name&search=a+b%26c")
	assert.Contains(t, withSearch, "desc=true")

	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeySortDesc: false, resultset.KeySearchValue: ""}))

	withoutSearch, err := rs.PrepareURL(nil)
	require.NoError(t, err)
	assert.NotContains(t, withoutSearch, "search=")
	assert.NotContains(t, withoutSearch, "desc=")
	assert.Contains(t, withoutSearch, "search_column=name")
}

func Test_PrepareURL_OverridesApplyToOneCall(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	searchStage(t, rs)

	overridden, err := rs.PrepareURL(map[string]any{resultset.KeySearchValue: "bob"})
	require.NoError(t, err)
	assert.Contains(t, overridden, "search=bob")

	plain, err := rs.PrepareURL(nil)
	require.NoError(t, err)
	assert.NotContains(t, plain, "search=")
}

func Test_PrepareURL_FailsForUnregisteredParameter(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	require.NoError(t, advice.Wrap(rs.Advice(), resultset.OpPrepareURL,
		func(original advice.Op[*resultset.URLArgs, error], args *resultset.URLArgs) error {
			if err := original(args); err != nil {
				return err
			}
			return args.SetParam(resultset.KeyFilterValue)
		}))

	_, err := rs.PrepareURL(nil)

	assert.ErrorIs(t, err, statetable.ErrUnregisteredStateKey)
}

func Test_StateFromURL_RoundTrip(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(), resultset.WithPaging(true))
	searchStage(t, rs)

	states := []resultset.SearchOptions{
		{resultset.KeySortColumn: "name", resultset.KeySortDesc: true, resultset.KeyPage: 3},
		{resultset.KeySearchColumn: "email", resultset.KeySearchValue: "ann&bob=1 %"},
		{resultset.KeySortColumn: "", resultset.KeySortDesc: false, resultset.KeySearchValue: ""},
	}

	for _, options := range states {
		require.NoError(t, rs.Search(options))

		rawURL, err := rs.PrepareURL(nil)
		require.NoError(t, err)

		reconstructed, err := rs.StateFromURL(rawURL)
		require.NoError(t, err)

		current := rs.State()
		for _, key := range []string{
			resultset.KeyPage, resultset.KeyPageSize, resultset.KeySortColumn, resultset.KeySortDesc,
			resultset.KeySearchColumn, resultset.KeySearchValue,
		} {
			assert.Equal(t, current.Get(key), reconstructed[key], "key %s in %s", key, rawURL)
		}
	}
}

func Test_Next_FetchesOncePerPass(t *testing.T) {
	fetcher := testdoubles.NewStaticFetcherStub(
		statetable.Record{"name": "alice"},
		statetable.Record{"name": "bob"},
	)
	rs := newResultset(t, fetcher)
	ctx := context.Background()

	var names []string
	for {
		record, ok, err := rs.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, record["name"].(string))
	}

	_, ok, err := rs.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"alice", "bob"}, names)
	assert.Len(t, fetcher.URLs(), 1)

	rs.Reset()
	_, ok, err = rs.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, fetcher.URLs(), 2)
}

func Test_Next_EmptyBatchEndsPass(t *testing.T) {
	fetcher := testdoubles.NewStaticFetcherStub()
	rs := newResultset(t, fetcher)

	for range 3 {
		_, ok, err := rs.Next(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Len(t, fetcher.URLs(), 1)
}

func Test_Next_KeepsRecordsOnFailure(t *testing.T) {
	failing := false
	fetcher := testdoubles.NewFetcherStub(func(context.Context, string) (statetable.Response, error) {
		if failing {
			return statetable.Response{}, &statetable.HTTPStatusError{StatusCode: 500, Status: "500 Internal Server Error"}
		}
		return statetable.Response{Records: []statetable.Record{{"name": "alice"}}, TotalRecords: 41, HasTotal: true}, nil
	})
	logger := testdoubles.NewLoggerSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	rs := newResultset(t, fetcher, resultset.WithLogger(logger), resultset.WithMetrics(metrics))

	_, _, err := rs.Next(context.Background())
	require.NoError(t, err)

	failing = true
	rs.Reset()
	_, ok, err := rs.Next(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, err, statetable.ErrFetchFailed)
	assert.Len(t, rs.Records(), 1)
	total, hasTotal := rs.TotalRecords()
	assert.Equal(t, 41, total)
	assert.True(t, hasTotal)
	assert.True(t, logger.Has("error", "data endpoint fetch failed"))
	assert.True(t, metrics.HasMetricWithLabel("statetable_fetch_errors_total", "error_type", "transport"))
}

func Test_Next_DiscardsResultOfSupersededState(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fetcher := testdoubles.NewFetcherStub(func(_ context.Context, rawURL string) (statetable.Response, error) {
		if strings.Contains(rawURL, "sort=stale") {
			once.Do(func() { close(started) })
			<-release
			return statetable.Response{Records: []statetable.Record{{"name": "stale"}}}, nil
		}
		return statetable.Response{Records: []statetable.Record{{"name": "fresh"}}}, nil
	})
	logger := testdoubles.NewLoggerSpy()
	rs := newResultset(t, fetcher, resultset.WithLogger(logger))
	require.NoError(t, rs.SetState(resultset.KeySortColumn, "stale"))

	errs := make(chan error, 1)
	go func() {
		_, _, err := rs.Next(context.Background())
		errs <- err
	}()

	<-started
	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeySortColumn: "fresh"}))
	close(release)

	err := <-errs
	assert.ErrorIs(t, err, statetable.ErrStaleResult)
	assert.Empty(t, rs.Records())
	assert.True(t, logger.Has("warn", "stale result discarded"))

	record, ok, err := rs.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", record["name"])
}

func Test_Redraw_RequiresRenderer(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())

	assert.ErrorIs(t, rs.Redraw(context.Background()), statetable.ErrNoRenderer)
}

func Test_Redraw_ResetsCursorAndRenders(t *testing.T) {
	fetcher := testdoubles.NewStaticFetcherStub(statetable.Record{"name": "alice"})
	rs := newResultset(t, fetcher)
	rendered := 0
	rs.BindRenderer(func(ctx context.Context) error {
		for {
			_, ok, err := rs.Next(ctx)
			if err != nil || !ok {
				return err
			}
			rendered++
		}
	})

	require.NoError(t, rs.Redraw(context.Background()))
	require.NoError(t, rs.Redraw(context.Background()))

	assert.Equal(t, 2, rendered)
	assert.Len(t, fetcher.URLs(), 2)
}

func Test_Redraw_PropagatesRendererError(t *testing.T) {
	rs := newResultset(t, testdoubles.NewStaticFetcherStub())
	failure := errors.New("render failed")
	rs.BindRenderer(func(context.Context) error { return failure })

	assert.ErrorIs(t, rs.Redraw(context.Background()), failure)
}

func Test_LastPage_UsesTotalAndPageSize(t *testing.T) {
	fetcher := testdoubles.NewFetcherStub(func(context.Context, string) (statetable.Response, error) {
		return statetable.Response{TotalRecords: 101, HasTotal: true}, nil
	})
	rs := newResultset(t, fetcher, resultset.WithPageSize(20))

	assert.Equal(t, 1, rs.LastPage())

	_, _, err := rs.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, rs.LastPage())
}

func Test_LastPage_WithoutTotalFollowsTheBatchSize(t *testing.T) {
	size := 2
	fetcher := testdoubles.NewFetcherStub(func(context.Context, string) (statetable.Response, error) {
		return statetable.Response{Records: make([]statetable.Record, size)}, nil
	})
	rs := newResultset(t, fetcher, resultset.WithPageSize(2))

	_, _, err := rs.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rs.LastPage())

	size = 1
	require.NoError(t, rs.Search(resultset.SearchOptions{resultset.KeyPage: 2}))
	_, _, err = rs.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rs.LastPage())
}

func Test_FetchWith_CancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fetcher := testdoubles.NewFetcherStub(func(ctx context.Context, _ string) (statetable.Response, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return statetable.Response{}, err
		}
		return statetable.Response{Records: []statetable.Record{{"name": "alice"}}}, nil
	})
	rs := newResultset(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := rs.FetchWith(ctx, nil)
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	var records []statetable.Record
	go func() {
		response, err := rs.FetchWith(context.Background(), nil)
		records = response.Records
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	require.NoError(t, <-second)
	assert.Len(t, records, 1)
}

func Test_FetchWith_LeavesRecordsAlone(t *testing.T) {
	fetcher := testdoubles.NewFetcherStub(func(_ context.Context, rawURL string) (statetable.Response, error) {
		return statetable.Response{Records: []statetable.Record{{"url": rawURL}}}, nil
	})
	tracing := testdoubles.NewTracingCollectorSpy()
	rs := newResultset(t, fetcher, resultset.WithTracing(tracing))
	searchStage(t, rs)

	response, err := rs.FetchWith(context.Background(), map[string]any{resultset.KeySearchValue: "bob"})

	require.NoError(t, err)
	assert.Contains(t, response.Records[0]["url"], "search=bob")
	assert.Empty(t, rs.Records())

	spans := tracing.SpansNamed("statetable.fetch")
	require.Len(t, spans, 1)
	assert.True(t, spans[0].Finished())
	assert.Equal(t, "success", spans[0].Status())
	assert.Equal(t, "fetch_with", spans[0].StartAttributes["operation"])
	assert.NotEmpty(t, spans[0].StartAttributes["request_id"])
}

func Test_Post_DelegatesToPoster(t *testing.T) {
	fetcher := testdoubles.NewStaticFetcherStub().OnPost(func(string, any, string) (statetable.PostResult, error) {
		return statetable.PostResult{Location: "/users"}, nil
	})
	rs := newResultset(t, fetcher)

	result, err := rs.Post(context.Background(), "http://example.test/prefs", map[string]any{"a": 1}, "token")

	require.NoError(t, err)
	assert.Equal(t, "/users", result.Location)
	require.Len(t, fetcher.Posts(), 1)
	assert.Equal(t, "token", fetcher.Posts()[0].Token)
}

func Test_Next_RecordsContextualObservability(t *testing.T) {
	logger := testdoubles.NewLoggerSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	rs := newResultset(t, testdoubles.NewStaticFetcherStub(statetable.Record{"name": "alice"}),
		resultset.WithContextualLogger(logger), resultset.WithMetrics(metrics))

	_, _, err := rs.Next(context.Background())
	require.NoError(t, err)

	assert.True(t, logger.HasContextual("info", "fetch completed"))
	assert.True(t, logger.HasContextual("debug", "requesting: fetch"))

	records := metrics.ForMetric("statetable_fetch_records")
	require.Len(t, records, 1)
	assert.Equal(t, float64(1), records[0].Value)
	assert.True(t, records[0].Contextual)
	assert.Equal(t, "users", records[0].Labels["table"])
}
