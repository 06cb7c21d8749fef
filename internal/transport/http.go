package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

// HTTPOptions configures an HTTP transport.
type HTTPOptions struct {
	// Client defaults to a zero-timeout http.Client; timeouts are left to the caller's context.
	Client *http.Client
	Logger *slog.Logger
}

// HTTP sends requests to a base URL with net/http.
type HTTP struct {
	baseURL string
	headers http.Header
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTP returns a transport bound to baseURL. headers are applied to every
// request before per-request headers. No connection is made until Do.
func NewHTTP(baseURL string, headers http.Header, opts HTTPOptions) *HTTP {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers.Clone(),
		client:  opts.Client,
		logger:  opts.Logger,
	}
}

// Do implements Transport.
func (h *HTTP) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := h.build(ctx, req)
	if err != nil {
		return nil, &Error{Err: err}
	}

	res, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("backend unavailable: %w", err)}
	}
	defer res.Body.Close()

	data, err := readBody(res)
	if err != nil {
		return nil, &Error{Response: &Response{Status: res.StatusCode, Header: res.Header}, Err: err}
	}
	h.logger.Debug("http exchange",
		"method", httpReq.Method,
		"url", httpReq.URL.Redacted(),
		"status", res.StatusCode,
		"bytes", len(data),
	)
	return settle(res.StatusCode, res.Header, data)
}

func (h *HTTP) build(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := url.Parse(h.baseURL + "/" + strings.TrimLeft(req.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing request URL: %w", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	for k, vs := range h.headers {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	httpReq.Header.Set("Accept-Encoding", "gzip, br")
	if httpReq.Header.Get("X-Request-Id") == "" {
		httpReq.Header.Set("X-Request-Id", uuid.NewString())
	}
	return httpReq, nil
}

// readBody reads the response body, decoding gzip and brotli content
// encodings. Setting Accept-Encoding ourselves disables net/http's own gzip
// handling, so both are decoded here.
func readBody(res *http.Response) ([]byte, error) {
	var r io.Reader = res.Body
	switch strings.ToLower(res.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(res.Body)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read the body: %w", err)
	}
	return data, nil
}
