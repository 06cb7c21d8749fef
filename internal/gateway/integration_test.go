//go:build integration

package gateway

import (
	"context"
	"os"
	"testing"
)

func getTestConfig(t *testing.T) (apiURL, email, password string) {
	t.Helper()
	apiURL = os.Getenv("CONFIGMAN_TEST_API")
	email = os.Getenv("CONFIGMAN_TEST_EMAIL")
	password = os.Getenv("CONFIGMAN_TEST_PASSWORD")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:1892/api"
	}
	if email == "" || password == "" {
		t.Skip("CONFIGMAN_TEST_EMAIL / CONFIGMAN_TEST_PASSWORD not set — skipping integration test")
	}
	return
}

func TestBackendLogin(t *testing.T) {
	apiURL, email, password := getTestConfig(t)

	g := New(apiURL, testStore(t), nil, nil)
	res, err := g.Login(context.Background(), LoginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	t.Logf("signed in: %s", res.Message)

	params, err := g.ListParameters(context.Background(), "")
	if err != nil {
		t.Fatalf("ListParameters: %v", err)
	}
	t.Logf("parameters: %d", len(params))
	for _, group := range Groups(params) {
		t.Logf("  - %s", group)
	}
}
