// Package transport executes requests against the data and write endpoints over HTTP.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pjfl/statetable/statetable"
)

// Form fields of a write endpoint request.
const (
	FormFieldData   = "data"
	FormFieldVerify = "_verify"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
	headerAccept    = "Accept"
	headerType      = "Content-Type"

	// maxBodyBytes bounds the size of a response body read into memory.
	maxBodyBytes = 32 << 20
)

// Client fetches records from the data endpoint and posts to the write endpoint.
type Client struct {
	httpClient *http.Client
	headers    http.Header
}

// ClientOption defines a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. A nil client keeps the default.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) ClientOption {
	return func(client *Client) {
		client.headers.Add(name, value)
	}
}

// NewClient creates a Client using http.DefaultClient unless told otherwise.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Fetch requests rawURL and decodes the data endpoint response. A non-2xx status returns an
// *HTTPStatusError that wraps ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, rawURL string) (statetable.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return statetable.Response{}, errors.Join(statetable.ErrFetchFailed, err)
	}

	body, err := c.do(req, statetable.ErrFetchFailed)
	if err != nil {
		return statetable.Response{}, err
	}

	return statetable.DecodeResponse(body)
}

// Post sends payload JSON-encoded in the data field of an urlencoded form, together with the
// verification token.
func (c *Client) Post(ctx context.Context, rawURL string, payload any, token string) (statetable.PostResult, error) {
	encoded, err := statetable.MarshalJSON(payload)
	if err != nil {
		return statetable.PostResult{}, errors.Join(statetable.ErrPostFailed, err)
	}

	form := url.Values{}
	form.Set(FormFieldData, string(encoded))
	if token != "" {
		form.Set(FormFieldVerify, token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return statetable.PostResult{}, errors.Join(statetable.ErrPostFailed, err)
	}
	req.Header.Set(headerType, contentTypeForm)

	body, err := c.do(req, statetable.ErrPostFailed)
	if err != nil {
		return statetable.PostResult{}, err
	}

	return statetable.DecodePostResult(bytes.TrimSpace(body))
}

func (c *Client) do(req *http.Request, sentinel error) ([]byte, error) {
	for name, values := range c.headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	req.Header.Set(headerAccept, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(sentinel, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		return nil, &statetable.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        req.URL.String(),
			Sentinel:   sentinel,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Join(sentinel, fmt.Errorf("reading response body: %w", err))
	}

	return body, nil
}
