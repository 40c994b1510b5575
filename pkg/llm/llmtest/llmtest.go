// Package llmtest provides test doubles for code built on package llm.
package llmtest

import (
	"context"
	"sync"

	"github.com/user/palaver/pkg/llm"
)

// Request is a call recorded by Transport.
type Request struct {
	Endpoint string
	Body     []byte
	Headers  []llm.Header
}

// Transport is an llm.Transport that records requests and answers them with
// PostFunc, or with an empty 200 response when PostFunc is nil.
type Transport struct {
	PostFunc func(ctx context.Context, req Request) (*llm.HTTPResponse, error)

	mu       sync.Mutex
	requests []Request
}

var _ llm.Transport = (*Transport)(nil)

// Post records the request and delegates to PostFunc.
func (t *Transport) Post(ctx context.Context, endpoint string, body []byte, headers []llm.Header) (*llm.HTTPResponse, error) {
	req := Request{Endpoint: endpoint, Body: body, Headers: headers}
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	if t.PostFunc != nil {
		return t.PostFunc(ctx, req)
	}
	return &llm.HTTPResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
}

// Requests returns a copy of the recorded requests.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// Respond returns a PostFunc that always answers with status and body.
func Respond(status int, body string) func(context.Context, Request) (*llm.HTTPResponse, error) {
	return func(context.Context, Request) (*llm.HTTPResponse, error) {
		return &llm.HTTPResponse{StatusCode: status, Body: []byte(body)}, nil
	}
}

// Fail returns a PostFunc that always fails with err.
func Fail(err error) func(context.Context, Request) (*llm.HTTPResponse, error) {
	return func(context.Context, Request) (*llm.HTTPResponse, error) {
		return nil, err
	}
}
