package mockbackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func do(t *testing.T, s *Server, method, target, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v\n%s", err, rec.Body.String())
	}
	return rec, env
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	_, env := do(t, s, "POST", "/api/auth/login", "", `{"email":"a@b.c","password":"pw"}`)
	if env.IsError {
		t.Fatalf("login failed: %+v", env.Error)
	}
	return env.Success.(map[string]any)["token"].(string)
}

func TestServer(t *testing.T) {
	t.Run("should require a token", func(t *testing.T) {
		s := New("a@b.c", "pw")
		rec, env := do(t, s, "GET", "/api/parameters", "", "")
		if rec.Code != http.StatusUnauthorized || !env.IsError {
			t.Fatalf("wanted 401 error envelope\ngot: %d %+v", rec.Code, env)
		}
	})

	t.Run("should report bad credentials inside a 200 envelope", func(t *testing.T) {
		s := New("a@b.c", "pw")
		rec, env := do(t, s, "POST", "/api/auth/login", "", `{"email":"a@b.c","password":"x"}`)
		if rec.Code != http.StatusOK || !env.IsError || env.Error.ErrorKey != "INVALID_CREDENTIALS" {
			t.Fatalf("unexpected: %d %+v", rec.Code, env)
		}
		if env.SessionID == "" {
			t.Fatalf("wanted a session id")
		}
	})

	t.Run("should filter by group", func(t *testing.T) {
		s := New("a@b.c", "pw")
		s.Seed(Parameter{Group: "db", Key: "host"}, Parameter{Group: "cache", Key: "ttl"})
		token := login(t, s)

		_, env := do(t, s, "GET", "/api/parameters?group=db", token, "")
		list := env.Success.([]any)
		if len(list) != 1 {
			t.Fatalf("wanted 1 parameter\ngot: %v", list)
		}
	})

	t.Run("should reject revoked tokens", func(t *testing.T) {
		s := New("a@b.c", "pw")
		token := login(t, s)
		s.Revoke()
		rec, _ := do(t, s, "GET", "/api/parameters", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("wanted: 401\ngot: %d", rec.Code)
		}
	})

	t.Run("should delete parameters", func(t *testing.T) {
		s := New("a@b.c", "pw")
		s.Seed(Parameter{ID: "p1", Group: "db", Key: "host"})
		token := login(t, s)
		rec, _ := do(t, s, "DELETE", "/api/parameters/p1", token, "")
		if rec.Code != http.StatusOK || len(s.Parameters()) != 0 {
			t.Fatalf("wanted parameter deleted\ngot: %d %v", rec.Code, s.Parameters())
		}
	})

	t.Run("should answer unknown routes with an error envelope", func(t *testing.T) {
		s := New("a@b.c", "pw")
		rec, env := do(t, s, "GET", "/api/nope", "", "")
		if rec.Code != http.StatusNotFound || !env.IsError {
			t.Fatalf("wanted 404 error envelope\ngot: %d %+v", rec.Code, env)
		}
		rec, env = do(t, s, "PATCH", "/api/parameters", "", "")
		if rec.Code != http.StatusMethodNotAllowed || !env.IsError {
			t.Fatalf("wanted 405 error envelope\ngot: %d %+v", rec.Code, env)
		}
	})
}

func TestServer_WebSocket(t *testing.T) {
	t.Run("should answer unknown routes over the socket", func(t *testing.T) {
		srv := httptest.NewServer(New("a@b.c", "pw"))
		defer srv.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		req := map[string]any{"type": "req", "id": "r1", "method": "GET", "path": "/nope"}
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var res struct {
			Type   string   `json:"type"`
			ID     string   `json:"id"`
			Status int      `json:"status"`
			Body   envelope `json:"body"`
		}
		if err := conn.ReadJSON(&res); err != nil {
			t.Fatalf("wanted: a response frame\ngot: %v", err)
		}
		if res.ID != "r1" || res.Status != http.StatusNotFound || !res.Body.IsError {
			t.Fatalf("wanted 404 error frame for r1\ngot: %+v", res)
		}
	})
}
