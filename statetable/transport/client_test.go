package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/transport"
)

func Test_Client_Fetch_DecodesRecords(t *testing.T) {
	var gotQuery, gotAccept, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		gotToken = r.Header.Get("X-Token")
		_, _ = w.Write([]byte(`{"records":[{"name":"alice"},{"name":"bob"}],"total-records":2}`))
	}))
	defer server.Close()

	client := transport.NewClient(transport.WithHTTPClient(server.Client()), transport.WithHeader("X-Token", "t1"))

	response, err := client.Fetch(context.Background(), server.URL+"/users?sort=name&page=1")

	require.NoError(t, err)
	assert.Len(t, response.Records, 2)
	assert.Equal(t, 2, response.TotalRecords)
	assert.Equal(t, "sort=name&page=1", gotQuery)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "t1", gotToken)
}

func Test_Client_Fetch_ReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := transport.NewClient(transport.WithHTTPClient(server.Client()))

	_, err := client.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, statetable.ErrFetchFailed)

	var statusErr *statetable.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func Test_Client_Fetch_FailsOnInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer server.Close()

	_, err := transport.NewClient().Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, statetable.ErrDecodingResponseFailed)
}

func Test_Client_Fetch_FailsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.NewClient().Fetch(ctx, server.URL)

	assert.ErrorIs(t, err, statetable.ErrFetchFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Client_Post_SendsFormEncodedPayload(t *testing.T) {
	var contentType, data, verify string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		data = r.PostForm.Get(transport.FormFieldData)
		verify = r.PostForm.Get(transport.FormFieldVerify)
		_, _ = w.Write([]byte(`{"location":"/users"}`))
	}))
	defer server.Close()

	result, err := transport.NewClient().Post(context.Background(), server.URL, map[string]any{"columns": []string{"name"}}, "secret")

	require.NoError(t, err)
	assert.Equal(t, "/users", result.Location)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.JSONEq(t, `{"columns":["name"]}`, data)
	assert.Equal(t, "secret", verify)
}

func Test_Client_Post_ReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := transport.NewClient().Post(context.Background(), server.URL, map[string]any{}, "")

	assert.ErrorIs(t, err, statetable.ErrPostFailed)
	assert.NotErrorIs(t, err, statetable.ErrFetchFailed)
}

func Test_Client_Post_AcceptsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	result, err := transport.NewClient().Post(context.Background(), server.URL, nil, "")

	require.NoError(t, err)
	assert.Empty(t, result.Location)
}
