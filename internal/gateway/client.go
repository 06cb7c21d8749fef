// Package gateway implements the configman backend gateway.
//
// Every call passes through two interception stages: the outgoing stage
// attaches the stored credential, the incoming stage turns application-level
// error envelopes and transport failures into *Error values after notifying
// the user (and, on 401, clearing the credential and redirecting to sign-in).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lastscouser/configman-cli/internal/credential"
	"github.com/lastscouser/configman-cli/internal/transport"
)

const (
	// CredentialKey is the storage key of the bearer token.
	CredentialKey = "access_token"

	// SignInPath is the route the Navigator is sent to after a 401.
	SignInPath = "/signin"
)

var (
	// ErrApplication matches failures where the transport succeeded but the
	// envelope declared isError.
	ErrApplication = errors.New("application error")

	// ErrTransport matches non-2xx statuses and network failures.
	ErrTransport = errors.New("transport error")
)

// Kind discriminates the two failure variants of *Error.
type Kind int

const (
	KindApplication Kind = iota + 1
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Error is the single failure carrier returned by every gateway call.
type Error struct {
	Kind      Kind
	Status    int                 // HTTP status, 0 if no response was received
	SessionID string              // from the error envelope, if any
	API       *APIError           // decoded error envelope, if any
	Response  *transport.Response // the original response, if any
	Cause     error               // the transport failure (KindTransport only)
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindApplication:
		return fmt.Sprintf("application error (status %d): %s", e.Status, DisplayMessage(e.API))
	case KindTransport:
		if e.API != nil {
			return fmt.Sprintf("transport error: %v: %s", e.Cause, DisplayMessage(e.API))
		}
		return fmt.Sprintf("transport error: %v", e.Cause)
	}
	return "gateway error"
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrApplication:
		return e.Kind == KindApplication
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// Unauthorized reports whether the failure carried HTTP status 401.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTransport replaces the default HTTP transport.
func WithTransport(t transport.Transport) Option {
	return func(g *Gateway) { g.transport = t }
}

// WithLogger sets the logger used for exchange tracing.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// DefaultHeaders returns the fixed headers sent with every request.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

// Gateway talks to the configman backend.
type Gateway struct {
	transport transport.Transport
	store     credential.Store
	sink      *Cell[Notifier]
	nav       *Cell[Navigator]
	logger    *slog.Logger
}

// New builds a Gateway for the backend at baseURL. sink and nav may be unbound
// (or nil) and bound later; they are read at the moment of use. New performs
// no network I/O.
func New(baseURL string, store credential.Store, sink *Cell[Notifier], nav *Cell[Navigator], opts ...Option) *Gateway {
	if sink == nil {
		sink = NewCell[Notifier]()
	}
	if nav == nil {
		nav = NewCell[Navigator]()
	}
	g := &Gateway{
		store: store,
		sink:  sink,
		nav:   nav,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.transport == nil {
		g.transport = transport.NewHTTP(baseURL, DefaultHeaders(), transport.HTTPOptions{Logger: g.logger})
	}
	return g
}

// BindNotifier sets the notification sink.
func (g *Gateway) BindNotifier(n Notifier) { g.sink.Set(n) }

// BindNavigator sets the navigator.
func (g *Gateway) BindNavigator(n Navigator) { g.nav.Set(n) }

// SetCredential persists token for all future requests.
func (g *Gateway) SetCredential(token string) error {
	if err := g.store.Set(CredentialKey, token); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// ClearCredential removes the stored token. It is a no-op when none is stored.
func (g *Gateway) ClearCredential() error {
	if err := g.store.Remove(CredentialKey); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

// Credential returns the stored token, if any.
func (g *Gateway) Credential() (string, bool) {
	return g.store.Get(CredentialKey)
}

// Get issues a GET request and returns the response body verbatim.
func (g *Gateway) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return g.do(ctx, http.MethodGet, path, params, nil)
}

// Post issues a POST request with body encoded as JSON.
func (g *Gateway) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with body encoded as JSON.
func (g *Gateway) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return g.do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request.
func (g *Gateway) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return g.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetAs is Get with the body decoded into T.
func GetAs[T any](ctx context.Context, g *Gateway, path string, params url.Values) (T, error) {
	return decode[T](g.Get(ctx, path, params))
}

// PostAs is Post with the body decoded into T.
func PostAs[T any](ctx context.Context, g *Gateway, path string, body any) (T, error) {
	return decode[T](g.Post(ctx, path, body))
}

// PutAs is Put with the body decoded into T.
func PutAs[T any](ctx context.Context, g *Gateway, path string, body any) (T, error) {
	return decode[T](g.Put(ctx, path, body))
}

// DeleteAs is Delete with the body decoded into T.
func DeleteAs[T any](ctx context.Context, g *Gateway, path string) (T, error) {
	return decode[T](g.Delete(ctx, path))
}

func decode[T any](data json.RawMessage, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding response: %w", err)
	}
	return v, nil
}

// do performs exactly one exchange through both interception stages.
func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	req := transport.NewRequest(method, path, query, body)
	g.handleRequest(req)

	res, err := g.transport.Do(ctx, req)
	if err != nil {
		return nil, g.handleError(req, err)
	}
	return g.handleResponse(req, res)
}

// handleRequest attaches the stored credential verbatim, without a scheme.
func (g *Gateway) handleRequest(req *transport.Request) {
	if token, ok := g.Credential(); ok {
		req.Header.Set("authorization", token)
	}
}

// handleResponse runs when the transport settled without error. An envelope
// with isError set becomes a KindApplication failure.
func (g *Gateway) handleResponse(req *transport.Request, res *transport.Response) (json.RawMessage, error) {
	env := sniffEnvelope(res.Data)
	g.logger.Debug("response",
		"method", req.Method,
		"path", req.Path,
		"status", res.Status,
		"isError", env.IsError,
		"sessionId", env.SessionID,
	)
	if !env.IsError {
		return json.RawMessage(res.Data), nil
	}

	if sink, ok := g.sink.Get(); ok {
		sink.Add(Notice{
			Severity: SeverityError,
			Summary:  "Error",
			Detail:   errorDetail(env.SessionID, env.Error),
		})
	}
	return nil, &Error{
		Kind:      KindApplication,
		Status:    res.Status,
		SessionID: env.SessionID,
		API:       env.Error,
		Response:  res,
	}
}

// handleError runs when the transport failed. Side effects only happen when
// both the sink and the navigator are bound; the failure is always returned.
func (g *Gateway) handleError(req *transport.Request, err error) error {
	gwErr := &Error{Kind: KindTransport, Cause: err}

	var terr *transport.Error
	if errors.As(err, &terr) && terr.Response != nil {
		env := sniffEnvelope(terr.Response.Data)
		gwErr.Status = terr.Response.Status
		gwErr.Response = terr.Response
		gwErr.API = env.Error
		gwErr.SessionID = env.SessionID
	}
	g.logger.Debug("request failed",
		"method", req.Method,
		"path", req.Path,
		"status", gwErr.Status,
		"error", err,
	)

	sink, okSink := g.sink.Get()
	nav, okNav := g.nav.Get()
	if !okSink || !okNav {
		return gwErr
	}

	if gwErr.Unauthorized() {
		if cerr := g.ClearCredential(); cerr != nil {
			g.logger.Error("clearing credential after 401", "error", cerr)
		}
		sink.Add(Notice{
			Severity: SeverityWarn,
			Summary:  "Unauthorized",
			Detail:   "Please sign in again.",
			Life:     3000 * time.Millisecond,
		})
		nav.Push(SignInPath)
	}

	sink.Add(Notice{
		Severity: SeverityError,
		Summary:  "Error",
		Detail:   errorDetail(gwErr.SessionID, gwErr.API),
	})
	return gwErr
}
