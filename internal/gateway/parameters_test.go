package gateway

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lastscouser/configman-cli/internal/mockbackend"
	"github.com/lastscouser/configman-cli/internal/transport"
)

// backendGateways returns one gateway per transport, all talking to the same
// mock backend.
func backendGateways(t *testing.T) (*mockbackend.Server, map[string]func() (*Gateway, *recorder)) {
	t.Helper()
	backend := mockbackend.New("admin@example.com", "secret")
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	return backend, map[string]func() (*Gateway, *recorder){
		"http": func() (*Gateway, *recorder) {
			rec := &recorder{}
			g := New(srv.URL+"/api", testStore(t), nil, nil)
			g.BindNotifier(rec)
			g.BindNavigator(rec)
			return g, rec
		},
		"ws": func() (*Gateway, *recorder) {
			ws := transport.NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", DefaultHeaders(), transport.WebSocketOptions{})
			t.Cleanup(ws.Close)
			rec := &recorder{}
			g := New("", testStore(t), nil, nil, WithTransport(ws))
			g.BindNotifier(rec)
			g.BindNavigator(rec)
			return g, rec
		},
	}
}

func TestGateway_Parameters(t *testing.T) {
	backend, gateways := backendGateways(t)
	ctx := context.Background()

	for name, newGateway := range gateways {
		t.Run(name, func(t *testing.T) {
			t.Run("should reject bad credentials with an application error", func(t *testing.T) {
				g, rec := newGateway()
				_, err := g.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "nope"})
				if !errors.Is(err, ErrApplication) {
					t.Fatalf("wanted ErrApplication\ngot: %v", err)
				}
				if _, ok := g.Credential(); ok {
					t.Fatalf("wanted no credential stored")
				}
				notices, _ := rec.snapshot()
				if len(notices) != 1 || !strings.HasSuffix(notices[0].Detail, "Invalid email or password") {
					t.Fatalf("unexpected notices: %+v", notices)
				}
			})

			t.Run("should manage parameters after login", func(t *testing.T) {
				g, rec := newGateway()
				res, err := g.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "secret"})
				if err != nil {
					t.Fatalf("wanted: nil\ngot: %v", err)
				}
				if got, _ := g.Credential(); got != res.Token {
					t.Fatalf("wanted stored token %q\ngot: %q", res.Token, got)
				}

				created, err := g.CreateParameter(ctx, ParameterCreationFields{
					Group: name, Key: "timeout", Value: "30s", Description: "request *timeout*",
				})
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				if created.ID == "" || created.CreatedAt.IsZero() {
					t.Fatalf("wanted id and createdAt\ngot: %+v", created)
				}

				_, err = g.CreateParameter(ctx, ParameterCreationFields{Group: name, Key: "timeout"})
				if !errors.Is(err, ErrApplication) {
					t.Fatalf("wanted duplicate to fail\ngot: %v", err)
				}

				updated, err := g.UpdateParameter(ctx, created.ID, ParameterUpdateFields{Group: name, Value: "45s", Description: "d"})
				if err != nil {
					t.Fatalf("update: %v", err)
				}
				if updated.Value != "45s" || updated.Key != "timeout" {
					t.Fatalf("unexpected update: %+v", updated)
				}

				got, err := g.GetParameter(ctx, created.ID)
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if !reflect.DeepEqual(got, updated) {
					t.Fatalf("\nwanted:\n%+v\ngot:\n%+v", updated, got)
				}

				list, err := g.ListParameters(ctx, name)
				if err != nil {
					t.Fatalf("list: %v", err)
				}
				if len(list) != 1 || list[0].ID != created.ID {
					t.Fatalf("unexpected list: %+v", list)
				}

				if _, err := g.DeleteParameter(ctx, created.ID); err != nil {
					t.Fatalf("delete: %v", err)
				}
				if _, err := g.GetParameter(ctx, created.ID); !errors.Is(err, ErrTransport) {
					t.Fatalf("wanted 404 transport error\ngot: %v", err)
				}

				// duplicate create + 404 each produced one error notice; nothing else.
				notices, paths := rec.snapshot()
				if len(notices) != 2 || len(paths) != 0 {
					t.Fatalf("unexpected side effects: %+v %v", notices, paths)
				}
			})

			t.Run("should redirect to sign-in when the session is revoked", func(t *testing.T) {
				g, rec := newGateway()
				if _, err := g.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "secret"}); err != nil {
					t.Fatal(err)
				}
				backend.Revoke()

				_, err := g.ListParameters(ctx, "")
				var gwErr *Error
				if !errors.As(err, &gwErr) || !gwErr.Unauthorized() {
					t.Fatalf("wanted 401\ngot: %v", err)
				}
				if _, ok := g.Credential(); ok {
					t.Fatalf("wanted credential cleared")
				}
				notices, paths := rec.snapshot()
				if len(notices) != 2 || notices[0].Summary != "Unauthorized" || notices[1].Summary != "Error" {
					t.Fatalf("unexpected notices: %+v", notices)
				}
				if !reflect.DeepEqual(paths, []string{SignInPath}) {
					t.Fatalf("unexpected navigation: %v", paths)
				}
			})

			t.Run("should clear the credential on logout", func(t *testing.T) {
				g, _ := newGateway()
				if _, err := g.Login(ctx, LoginRequest{Email: "admin@example.com", Password: "secret"}); err != nil {
					t.Fatal(err)
				}
				if err := g.Logout(); err != nil {
					t.Fatal(err)
				}
				if _, ok := g.Credential(); ok {
					t.Fatalf("wanted no credential")
				}
			})
		})
	}
}

func TestGroups(t *testing.T) {
	params := []Parameter{{Group: "db"}, {Group: "cache"}, {Group: "db"}, {Group: ""}}
	want := []string{"cache", "db"}
	if got := Groups(params); !reflect.DeepEqual(got, want) {
		t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
	}
}
