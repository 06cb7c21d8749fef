package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Status represents the connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// StatusHandler is called when the connection status changes.
type StatusHandler func(Status)

// WebSocketOptions configures a WebSocket transport.
type WebSocketOptions struct {
	OnStatus       StatusHandler
	RequestTimeout time.Duration
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
}

// WebSocket multiplexes request/response frames over a single socket.
//
//	-> {"type":"req","id":"…","method":"GET","path":"/parameters","query":{…},"headers":{…},"body":…}
//	<- {"type":"res","id":"…","status":200,"body":…}
type WebSocket struct {
	url     string
	headers http.Header
	opts    WebSocketOptions

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status

	pendingMu sync.Mutex
	pending   map[string]chan frameResult

	done chan struct{}
	once sync.Once
}

type reqFrame struct {
	Type    string              `json:"type"`
	ID      string              `json:"id"`
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query,omitempty"`
	Headers map[string]string   `json:"headers,omitempty"`
	Body    any                 `json:"body,omitempty"`
}

type resFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type frameResult struct {
	frame resFrame
	err   error
}

// NewWebSocket returns a transport for the RPC endpoint at url. The socket is
// dialed lazily by the first Do.
func NewWebSocket(url string, headers http.Header, opts WebSocketOptions) *WebSocket {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WebSocket{
		url:     url,
		headers: headers.Clone(),
		opts:    opts,
		status:  StatusDisconnected,
		pending: make(map[string]chan frameResult),
		done:    make(chan struct{}),
	}
}

// Do implements Transport.
func (w *WebSocket) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := w.connect(ctx); err != nil {
		return nil, &Error{Err: err}
	}

	frame := reqFrame{
		Type:    "req",
		ID:      uuid.NewString(),
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Headers: w.frameHeaders(req.Header),
		Body:    req.Body,
	}

	ch := make(chan frameResult, 1)
	w.pendingMu.Lock()
	w.pending[frame.ID] = ch
	w.pendingMu.Unlock()

	if err := w.sendJSON(frame); err != nil {
		w.forget(frame.ID)
		return nil, &Error{Err: err}
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &Error{Err: r.err}
		}
		w.opts.Logger.Debug("ws exchange", "method", req.Method, "path", req.Path, "status", r.frame.Status)
		return settle(r.frame.Status, http.Header{}, []byte(r.frame.Body))
	case <-time.After(w.opts.RequestTimeout):
		w.forget(frame.ID)
		return nil, &Error{Err: fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrTimeout)}
	case <-ctx.Done():
		w.forget(frame.ID)
		return nil, &Error{Err: ctx.Err()}
	case <-w.done:
		return nil, &Error{Err: ErrClosed}
	}
}

// Close shuts down the connection and rejects every pending request.
func (w *WebSocket) Close() {
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.conn != nil {
			_ = w.conn.Close()
			w.conn = nil
		}
		w.mu.Unlock()
		w.setStatus(StatusDisconnected)
		w.rejectAllPending(ErrClosed)
	})
}

// Status returns the current connection status.
func (w *WebSocket) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// connect dials the socket unless a live connection already exists.
func (w *WebSocket) connect(ctx context.Context) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}

	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.setStatus(StatusConnecting)
	conn, _, err := w.opts.Dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		w.setStatus(StatusError)
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.mu.Lock()
	if w.conn != nil {
		// Another request won the race; keep its connection.
		w.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	w.conn = conn
	w.mu.Unlock()

	w.setStatus(StatusConnected)
	go w.readLoop(conn)
	return nil
}

// readLoop reads frames from conn and dispatches responses to their callers.
func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				w.opts.Logger.Warn("websocket read failed", "error", err)
				w.mu.Lock()
				if w.conn == conn {
					w.conn = nil
				}
				w.mu.Unlock()
				_ = conn.Close()
				w.setStatus(StatusError)
				w.rejectAllPending(fmt.Errorf("read error: %w", err))
			}
			return
		}

		var frame resFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			w.opts.Logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		if frame.Type != "res" {
			continue
		}
		w.handleResponse(frame)
	}
}

func (w *WebSocket) handleResponse(frame resFrame) {
	w.pendingMu.Lock()
	ch, ok := w.pending[frame.ID]
	if ok {
		delete(w.pending, frame.ID)
	}
	w.pendingMu.Unlock()

	if ok {
		ch <- frameResult{frame: frame}
	}
}

func (w *WebSocket) frameHeaders(extra http.Header) map[string]string {
	out := make(map[string]string, len(w.headers)+len(extra))
	for k := range w.headers {
		out[http.CanonicalHeaderKey(k)] = w.headers.Get(k)
	}
	for k := range extra {
		out[http.CanonicalHeaderKey(k)] = extra.Get(k)
	}
	return out
}

func (w *WebSocket) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("not connected")
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WebSocket) forget(id string) {
	w.pendingMu.Lock()
	delete(w.pending, id)
	w.pendingMu.Unlock()
}

func (w *WebSocket) setStatus(s Status) {
	w.mu.Lock()
	changed := w.status != s
	w.status = s
	w.mu.Unlock()
	if changed && w.opts.OnStatus != nil {
		w.opts.OnStatus(s)
	}
}

func (w *WebSocket) rejectAllPending(err error) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	for id, ch := range w.pending {
		ch <- frameResult{err: err}
		delete(w.pending, id)
	}
}
