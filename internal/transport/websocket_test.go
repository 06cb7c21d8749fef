package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// rpcServer answers every request frame with handle's status and body.
func rpcServer(t *testing.T, handle func(f reqFrame) (int, string)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f reqFrame
			if err := json.Unmarshal(data, &f); err != nil {
				return
			}
			status, body := handle(f)
			if status == 0 {
				continue // never answer
			}
			out, _ := json.Marshal(resFrame{Type: "res", ID: f.ID, Status: status, Body: json.RawMessage(body)})
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocket_Do(t *testing.T) {
	t.Run("should round-trip a request frame", func(t *testing.T) {
		frames := make(chan reqFrame, 1)
		srv := rpcServer(t, func(f reqFrame) (int, string) {
			frames <- f
			return 200, `{"isError":false,"success":"pong"}`
		})
		defer srv.Close()

		var statuses []Status
		ws := NewWebSocket(wsURL(srv), jsonHeaders(), WebSocketOptions{
			OnStatus: func(s Status) { statuses = append(statuses, s) },
		})
		defer ws.Close()

		if ws.Status() != StatusDisconnected {
			t.Fatalf("wanted no connection before first request\ngot: %s", ws.Status())
		}

		req := NewRequest("GET", "/ping", map[string][]string{"a": {"b"}}, nil)
		req.Header.Set("authorization", "tok")
		res, err := ws.Do(context.Background(), req)
		if err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}
		if string(res.Data) != `{"isError":false,"success":"pong"}` {
			t.Fatalf("unexpected body: %s", res.Data)
		}
		seen := <-frames
		if seen.Method != "GET" || seen.Path != "/ping" || seen.Query["a"][0] != "b" {
			t.Fatalf("unexpected frame: %+v", seen)
		}
		if seen.Headers["Authorization"] != "tok" || seen.Headers["Content-Type"] != "application/json" {
			t.Fatalf("unexpected headers: %+v", seen.Headers)
		}
		if ws.Status() != StatusConnected {
			t.Fatalf("wanted connected\ngot: %s", ws.Status())
		}
		if len(statuses) < 2 || statuses[0] != StatusConnecting || statuses[1] != StatusConnected {
			t.Fatalf("unexpected status sequence: %v", statuses)
		}
	})

	t.Run("should return *Error for non-2xx frame", func(t *testing.T) {
		srv := rpcServer(t, func(f reqFrame) (int, string) {
			return 401, `{"isError":true}`
		})
		defer srv.Close()

		ws := NewWebSocket(wsURL(srv), nil, WebSocketOptions{})
		defer ws.Close()

		_, err := ws.Do(context.Background(), NewRequest("GET", "/x", nil, nil))
		var terr *Error
		if !errors.As(err, &terr) || terr.StatusCode() != 401 {
			t.Fatalf("wanted 401 *Error\ngot: %v", err)
		}
	})

	t.Run("should time out unanswered requests", func(t *testing.T) {
		srv := rpcServer(t, func(f reqFrame) (int, string) { return 0, "" })
		defer srv.Close()

		ws := NewWebSocket(wsURL(srv), nil, WebSocketOptions{RequestTimeout: 50 * time.Millisecond})
		defer ws.Close()

		_, err := ws.Do(context.Background(), NewRequest("GET", "/slow", nil, nil))
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("wanted ErrTimeout\ngot: %v", err)
		}
	})

	t.Run("should refuse requests after Close", func(t *testing.T) {
		ws := NewWebSocket("ws://127.0.0.1:1", nil, WebSocketOptions{})
		ws.Close()
		_, err := ws.Do(context.Background(), NewRequest("GET", "/x", nil, nil))
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("wanted ErrClosed\ngot: %v", err)
		}
	})
}
