package testdoubles

import (
	"context"
	"sync"

	"github.com/pjfl/statetable/statetable"
)

// FetcherStub serves data endpoint responses from a function and records requested URLs.
type FetcherStub struct {
	mu       sync.Mutex
	urls     []string
	posts    []PostCall
	respond  func(ctx context.Context, rawURL string) (statetable.Response, error)
	postFunc func(rawURL string, payload any, token string) (statetable.PostResult, error)
}

// PostCall is one captured write endpoint request.
type PostCall struct {
	URL     string
	Payload any
	Token   string
}

// NewFetcherStub creates a stub answering every fetch with respond.
func NewFetcherStub(respond func(ctx context.Context, rawURL string) (statetable.Response, error)) *FetcherStub {
	return &FetcherStub{respond: respond}
}

// NewStaticFetcherStub creates a stub answering every fetch with records.
func NewStaticFetcherStub(records ...statetable.Record) *FetcherStub {
	return NewFetcherStub(func(context.Context, string) (statetable.Response, error) {
		return statetable.Response{Records: records, TotalRecords: len(records), HasTotal: true}, nil
	})
}

// OnPost sets the response of Post.
func (s *FetcherStub) OnPost(fn func(rawURL string, payload any, token string) (statetable.PostResult, error)) *FetcherStub {
	s.postFunc = fn
	return s
}

// Fetch implements resultset.Fetcher.
func (s *FetcherStub) Fetch(ctx context.Context, rawURL string) (statetable.Response, error) {
	s.mu.Lock()
	s.urls = append(s.urls, rawURL)
	s.mu.Unlock()

	return s.respond(ctx, rawURL)
}

// Post implements resultset.Poster.
func (s *FetcherStub) Post(_ context.Context, rawURL string, payload any, token string) (statetable.PostResult, error) {
	s.mu.Lock()
	s.posts = append(s.posts, PostCall{URL: rawURL, Payload: payload, Token: token})
	s.mu.Unlock()

	if s.postFunc == nil {
		return statetable.PostResult{}, nil
	}

	return s.postFunc(rawURL, payload, token)
}

// URLs returns the requested URLs in order.
func (s *FetcherStub) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.urls...)
}

// LastURL returns the most recently requested URL.
func (s *FetcherStub) LastURL() string {
	urls := s.URLs()
	if len(urls) == 0 {
		return ""
	}

	return urls[len(urls)-1]
}

// Posts returns the captured write endpoint requests.
func (s *FetcherStub) Posts() []PostCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]PostCall(nil), s.posts...)
}
