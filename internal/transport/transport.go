// Package transport carries a single request/response exchange with the
// configman backend. The gateway depends only on the Transport interface.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var (
	// ErrClosed is returned when a request is issued on, or pending in, a closed transport.
	ErrClosed = errors.New("transport closed")

	// ErrTimeout is returned when no response arrives within the request timeout.
	ErrTimeout = errors.New("request timed out")
)

// Request is one outgoing call. Path is relative to the transport's base address.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// NewRequest returns a Request with an initialized header map.
func NewRequest(method, path string, query url.Values, body any) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		Header: make(http.Header),
	}
}

// Response is a settled exchange.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Error is a transport-level failure: a non-2xx status (Response set) or a
// network failure (Response nil, Err set).
type Error struct {
	Response *Response
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Response != nil && e.Err != nil:
		return fmt.Sprintf("status %d: %v", e.Response.Status, e.Err)
	case e.Response != nil:
		return fmt.Sprintf("status %d", e.Response.Status)
	case e.Err != nil:
		return e.Err.Error()
	}
	return "transport error"
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by the failure, or 0 when the
// exchange never produced a response.
func (e *Error) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// Transport sends a Request and waits for it to settle.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do implements Transport.
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// settle turns a received status and body into the Transport result.
func settle(status int, header http.Header, data []byte) (*Response, error) {
	res := &Response{Status: status, Header: header, Data: data}
	if !isSuccess(status) {
		return nil, &Error{Response: res}
	}
	return res, nil
}
