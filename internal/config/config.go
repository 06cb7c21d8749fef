package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is reported by -version. Set by GoReleaser via ldflags in main.
var Version = "dev"

// SSH holds SSH tunnel configuration.
type SSH struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path"`
	RemotePort int    `yaml:"remote_port"`
}

// Config is the top-level application configuration.
// Priority: CLI flags > environment variables > config file defaults.
type Config struct {
	APIURL          string `yaml:"api_url"`
	Transport       string `yaml:"transport"` // "http" (default) or "ws"
	WSURL           string `yaml:"ws_url,omitempty"`
	CredentialStore string `yaml:"credential_store"` // "file" (default) or "sqlite"
	CredentialPath  string `yaml:"credential_path,omitempty"`
	LogFile         string `yaml:"log_file,omitempty"`
	Debug           bool   `yaml:"debug,omitempty"`
	SSH             *SSH   `yaml:"ssh,omitempty"`
}

// Load reads config from file, applies env overrides, then flag overrides.
func Load() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := defaults()

	// 1. Config file
	path := FilePath()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// 2. Environment variables
	if v := os.Getenv("CONFIGMAN_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("CONFIGMAN_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("CONFIGMAN_WS_URL"); v != "" {
		cfg.WSURL = v
	}
	if v := os.Getenv("CONFIGMAN_CREDENTIAL_STORE"); v != "" {
		cfg.CredentialStore = v
	}
	if v := os.Getenv("CONFIGMAN_LOG"); v != "" {
		cfg.LogFile = v
	}

	// SSH env
	if v := os.Getenv("CONFIGMAN_SSH_HOST"); v != "" {
		if cfg.SSH == nil {
			cfg.SSH = &SSH{}
		}
		cfg.SSH.Host = v
	}

	// 3. CLI flags (defined here so help text is accurate)
	var (
		flagAPI       = fs.String("api", cfg.APIURL, "Backend API base URL (http:// or https://)")
		flagTransport = fs.String("transport", cfg.Transport, `Transport to use: "http" (default) or "ws"`)
		flagWS        = fs.String("ws", cfg.WSURL, "WebSocket RPC URL (default: derived from -api)")
		flagStore     = fs.String("store", cfg.CredentialStore, `Credential store: "file" (default) or "sqlite"`)
		flagLog       = fs.String("log", cfg.LogFile, "Log file path")
		flagDebug     = fs.Bool("debug", cfg.Debug, "Enable debug logging")
		flagSSHHost   = fs.String("ssh-host", "", "SSH tunnel host")
		flagSSHPort   = fs.Int("ssh-port", 22, "SSH tunnel port")
		flagSSHUser   = fs.String("ssh-user", "", "SSH tunnel user")
		flagSSHKey    = fs.String("ssh-key", "", "Path to SSH private key")
		flagSSHRemote = fs.Int("ssh-remote-port", 1892, "Remote backend port to forward")
		flagVersion   = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *flagVersion {
		fmt.Println("configman-cli " + Version)
		os.Exit(0)
	}

	if *flagAPI != "" {
		cfg.APIURL = strings.TrimRight(*flagAPI, "/")
	}
	if *flagTransport != "" {
		cfg.Transport = *flagTransport
	}
	if *flagWS != "" {
		cfg.WSURL = *flagWS
	}
	if *flagStore != "" {
		cfg.CredentialStore = *flagStore
	}
	if *flagLog != "" {
		cfg.LogFile = *flagLog
	}
	cfg.Debug = *flagDebug
	if *flagSSHHost != "" {
		if cfg.SSH == nil {
			cfg.SSH = &SSH{}
		}
		cfg.SSH.Host = *flagSSHHost
		cfg.SSH.Port = *flagSSHPort
		cfg.SSH.User = *flagSSHUser
		cfg.SSH.KeyPath = *flagSSHKey
		cfg.SSH.RemotePort = *flagSSHRemote
	}

	if cfg.CredentialPath == "" {
		name := "credentials.yaml"
		if cfg.CredentialStore == "sqlite" {
			name = "credentials.db"
		}
		cfg.CredentialPath = filepath.Join(Dir(), name)
	}
	cfg.CredentialPath = ExpandTilde(cfg.CredentialPath)
	cfg.LogFile = ExpandTilde(cfg.LogFile)

	return cfg, nil
}

// Save writes the config to the default config file path.
func (c *Config) Save() error {
	path := FilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate returns an error if required fields are missing.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required (--api or CONFIGMAN_API_URL)")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API URL %q must be an absolute http:// or https:// URL", c.APIURL)
	}
	switch c.Transport {
	case "", "http", "ws":
		// valid
	default:
		return fmt.Errorf("unknown transport %q: must be \"http\" or \"ws\"", c.Transport)
	}
	switch c.CredentialStore {
	case "", "file", "sqlite":
		// valid
	default:
		return fmt.Errorf("unknown credential store %q: must be \"file\" or \"sqlite\"", c.CredentialStore)
	}
	if c.SSH != nil {
		if c.SSH.Host == "" {
			return fmt.Errorf("ssh-host is required when using SSH tunnel")
		}
		if c.SSH.User == "" {
			return fmt.Errorf("ssh-user is required when using SSH tunnel")
		}
	}
	return nil
}

// IsWebSocket returns true when requests travel over the WebSocket transport.
func (c *Config) IsWebSocket() bool {
	return c.Transport == "ws"
}

// SSHEnabled returns true if SSH tunnel is configured.
func (c *Config) SSHEnabled() bool {
	return c.SSH != nil && c.SSH.Host != ""
}

// WebSocketURL returns the configured ws_url, or one derived from apiURL:
// http becomes ws, https becomes wss, and "/ws" is appended to the path.
func (c *Config) WebSocketURL(apiURL string) string {
	if c.WSURL != "" {
		return c.WSURL
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// Dir returns the directory holding config, credentials and logs.
// Always uses ~/.config (XDG convention) regardless of platform.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "configman-cli")
}

// FilePath returns the path to the config file.
func FilePath() string {
	if v := os.Getenv("CONFIGMAN_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(Dir(), "config.yaml")
}

func defaults() *Config {
	return &Config{
		APIURL:          "http://localhost:1892/api",
		Transport:       "http",
		CredentialStore: "file",
		LogFile:         filepath.Join(Dir(), "configman.log"),
	}
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
