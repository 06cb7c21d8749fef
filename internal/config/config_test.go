package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func loadWith(t *testing.T, args ...string) *Config {
	t.Helper()
	cfg, err := load(flag.NewFlagSet("test", flag.ContinueOnError), args)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CONFIGMAN_CONFIG", filepath.Join(dir, "config.yaml"))
	for _, k := range []string{"CONFIGMAN_API_URL", "CONFIGMAN_TRANSPORT", "CONFIGMAN_WS_URL", "CONFIGMAN_CREDENTIAL_STORE", "CONFIGMAN_LOG", "CONFIGMAN_SSH_HOST"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("should use defaults without file, env or flags", func(t *testing.T) {
		isolate(t)
		cfg := loadWith(t)
		if cfg.APIURL != "http://localhost:1892/api" {
			t.Fatalf("wanted default api url\ngot: %q", cfg.APIURL)
		}
		if cfg.Transport != "http" || cfg.CredentialStore != "file" {
			t.Fatalf("wanted http/file\ngot: %q/%q", cfg.Transport, cfg.CredentialStore)
		}
		if filepath.Base(cfg.CredentialPath) != "credentials.yaml" {
			t.Fatalf("wanted credentials.yaml\ngot: %q", cfg.CredentialPath)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("wanted: nil\ngot: %v", err)
		}
	})

	t.Run("should apply file then env then flags", func(t *testing.T) {
		dir := isolate(t)
		file := "api_url: http://file:1/api\ntransport: ws\ncredential_store: sqlite\n"
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(file), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CONFIGMAN_API_URL", "http://env:2/api")

		cfg := loadWith(t)
		if cfg.APIURL != "http://env:2/api" {
			t.Fatalf("wanted env to override file\ngot: %q", cfg.APIURL)
		}
		if cfg.Transport != "ws" {
			t.Fatalf("wanted file transport ws\ngot: %q", cfg.Transport)
		}
		if filepath.Base(cfg.CredentialPath) != "credentials.db" {
			t.Fatalf("wanted sqlite default path\ngot: %q", cfg.CredentialPath)
		}

		cfg = loadWith(t, "-api", "http://flag:3/api/", "-debug")
		if cfg.APIURL != "http://flag:3/api" {
			t.Fatalf("wanted flag to override env\ngot: %q", cfg.APIURL)
		}
		if !cfg.Debug {
			t.Fatalf("wanted debug enabled")
		}
	})

	t.Run("should build ssh block from flags", func(t *testing.T) {
		isolate(t)
		cfg := loadWith(t, "-ssh-host", "bastion", "-ssh-user", "ops")
		if !cfg.SSHEnabled() {
			t.Fatalf("wanted ssh enabled")
		}
		if cfg.SSH.RemotePort != 1892 || cfg.SSH.Port != 22 {
			t.Fatalf("wanted default ports\ngot: %+v", cfg.SSH)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{APIURL: "http://localhost:1892/api"}, false},
		{"missing api", Config{}, true},
		{"relative api", Config{APIURL: "/api"}, true},
		{"unknown transport", Config{APIURL: "http://x/api", Transport: "grpc"}, true},
		{"unknown store", Config{APIURL: "http://x/api", CredentialStore: "redis"}, true},
		{"ssh without user", Config{APIURL: "http://x/api", SSH: &SSH{Host: "h"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wanted error: %v\ngot: %v", tt.wantErr, err)
			}
		})
	}
}

func TestWebSocketURL(t *testing.T) {
	c := &Config{}
	if got := c.WebSocketURL("https://example.com/api/"); got != "wss://example.com/api/ws" {
		t.Fatalf("wanted: wss://example.com/api/ws\ngot: %q", got)
	}
	if got := c.WebSocketURL("http://localhost:1892/api"); got != "ws://localhost:1892/api/ws" {
		t.Fatalf("wanted: ws://localhost:1892/api/ws\ngot: %q", got)
	}
	c.WSURL = "ws://explicit/rpc"
	if got := c.WebSocketURL("http://ignored"); got != "ws://explicit/rpc" {
		t.Fatalf("wanted explicit url\ngot: %q", got)
	}
}
