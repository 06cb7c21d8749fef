// Package mockbackend is an in-memory configman backend for tests and local
// development. It speaks the same envelope format as the real service over
// plain HTTP and over the WebSocket RPC endpoint.
package mockbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Success   any       `json:"success"`
	Error     *apiError `json:"error"`
	IsError   bool      `json:"isError"`
	SessionID string    `json:"sessionId,omitempty"`
}

type apiError struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	ErrorKey     string `json:"errorKey,omitempty"`
	ErrorData    any    `json:"errorData"`
}

// Parameter mirrors the backend's stored parameter.
type Parameter struct {
	ID          string    `json:"id"`
	Group       string    `json:"group"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Server holds the backend state.
type Server struct {
	email    string
	password string

	mu     sync.Mutex
	tokens map[string]bool
	params []Parameter

	router *mux.Router
}

// New returns a backend accepting the given credentials.
func New(email, password string) *Server {
	s := &Server{
		email:    email,
		password: password,
		tokens:   make(map[string]bool),
	}
	s.router = s.newRouter()
	return s
}

// ServeHTTP implements http.Handler. Routes are mounted under /api.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed adds parameters directly to the store.
func (s *Server) Seed(params ...Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range params {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC().Truncate(time.Second)
		}
		s.params = append(s.params, p)
	}
}

// Revoke invalidates every issued token, so the next request gets a 401.
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]bool)
}

// Parameters returns a copy of the stored parameters.
func (s *Server) Parameters() []Parameter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.params)
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, 404, "Route not found", "NOT_FOUND")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, 405, "Method not allowed", "METHOD_NOT_ALLOWED")
	})
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ws", s.serveWS).Methods("GET")
	api.HandleFunc("/auth/login", s.login).Methods("POST")
	api.HandleFunc("/parameters", s.auth(s.listParameters)).Methods("GET")
	api.HandleFunc("/parameters", s.auth(s.createParameter)).Methods("POST")
	api.HandleFunc("/parameters/{id}", s.auth(s.getParameter)).Methods("GET")
	api.HandleFunc("/parameters/{id}", s.auth(s.updateParameter)).Methods("PUT")
	api.HandleFunc("/parameters/{id}", s.auth(s.deleteParameter)).Methods("DELETE")
	return r
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		s.mu.Lock()
		ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, 401, "Unauthorized", "UNAUTHORIZED")
			return
		}
		next(w, r)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 400, "", "BAD_REQUEST")
		return
	}
	if req.Email != s.email || req.Password != s.password {
		// Application-level failure on a 200 exchange.
		writeError(w, http.StatusOK, 1001, "Invalid email or password", "INVALID_CREDENTIALS")
		return
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()
	writeSuccess(w, map[string]string{"message": "Signed in", "token": token})
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	s.mu.Lock()
	out := make([]Parameter, 0, len(s.params))
	for _, p := range s.params {
		if group == "" || p.Group == group {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	writeSuccess(w, out)
}

func (s *Server) getParameter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := s.indexOf(mux.Vars(r)["id"])
	var p Parameter
	if i >= 0 {
		p = s.params[i]
	}
	s.mu.Unlock()
	if i < 0 {
		writeError(w, http.StatusNotFound, 404, "Parameter not found", "NOT_FOUND")
		return
	}
	writeSuccess(w, p)
}

func (s *Server) createParameter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group       string `json:"group"`
		Key         string `json:"key"`
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusOK, 1002, "", "VALIDATION_FAILED")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.params {
		if p.Group == req.Group && p.Key == req.Key {
			writeError(w, http.StatusOK, 1003, fmt.Sprintf("Parameter %s/%s already exists", req.Group, req.Key), "PARAMETER_EXISTS")
			return
		}
	}
	p := Parameter{
		ID:          uuid.NewString(),
		Group:       req.Group,
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	s.params = append(s.params, p)
	writeSuccess(w, p)
}

func (s *Server) updateParameter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group       string `json:"group"`
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 400, "", "BAD_REQUEST")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(mux.Vars(r)["id"])
	if i < 0 {
		writeError(w, http.StatusNotFound, 404, "Parameter not found", "NOT_FOUND")
		return
	}
	s.params[i].Group = req.Group
	s.params[i].Value = req.Value
	s.params[i].Description = req.Description
	writeSuccess(w, s.params[i])
}

func (s *Server) deleteParameter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(mux.Vars(r)["id"])
	if i < 0 {
		writeError(w, http.StatusNotFound, 404, "Parameter not found", "NOT_FOUND")
		return
	}
	s.params = slices.Delete(s.params, i, i+1)
	writeSuccess(w, map[string]string{"message": "Parameter deleted"})
}

// indexOf must be called with s.mu held.
func (s *Server) indexOf(id string) int {
	return slices.IndexFunc(s.params, func(p Parameter) bool { return p.ID == id })
}

// serveWS answers RPC frames by replaying them through the HTTP router.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
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
		var frame struct {
			Type    string              `json:"type"`
			ID      string              `json:"id"`
			Method  string              `json:"method"`
			Path    string              `json:"path"`
			Query   map[string][]string `json:"query"`
			Headers map[string]string   `json:"headers"`
			Body    json.RawMessage     `json:"body"`
		}
		if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "req" {
			continue
		}

		target := "/api/" + strings.TrimLeft(frame.Path, "/")
		if len(frame.Query) > 0 {
			target += "?" + url.Values(frame.Query).Encode()
		}
		req := httptest.NewRequest(frame.Method, target, bytes.NewReader(frame.Body))
		for k, v := range frame.Headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		body := rec.Body.Bytes()
		if !json.Valid(body) {
			body, _ = json.Marshal(envelope{
				IsError: true,
				Error:   &apiError{ErrorCode: rec.Code, ErrorMessage: strings.TrimSpace(rec.Body.String())},
			})
		}
		out, err := json.Marshal(map[string]any{
			"type":   "res",
			"id":     frame.ID,
			"status": rec.Code,
			"body":   json.RawMessage(body),
		})
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

func writeSuccess(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, envelope{Success: v, SessionID: uuid.NewString()})
}

func writeError(w http.ResponseWriter, status, code int, message, key string) {
	writeJSON(w, status, envelope{
		IsError:   true,
		SessionID: uuid.NewString(),
		Error:     &apiError{ErrorCode: code, ErrorMessage: message, ErrorKey: key},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
