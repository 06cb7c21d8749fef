package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lastscouser/configman-cli/internal/config"
	"github.com/lastscouser/configman-cli/internal/credential"
	"github.com/lastscouser/configman-cli/internal/gateway"
	"github.com/lastscouser/configman-cli/internal/transport"
	"github.com/lastscouser/configman-cli/internal/tunnel"
	"github.com/lastscouser/configman-cli/internal/ui"
)

// Set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	config.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configman-cli: config error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configman-cli: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Config file: %s\n\n", config.FilePath())
		fmt.Fprintf(os.Stderr, "Example config:\n")
		fmt.Fprintf(os.Stderr, "  api_url: https://configman.example.com/api\n")
		fmt.Fprintf(os.Stderr, "  transport: http\n")
		fmt.Fprintf(os.Stderr, "  credential_store: file\n")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configman-cli: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	apiURL := cfg.APIURL
	wsURL := cfg.WebSocketURL(apiURL)
	if cfg.SSHEnabled() {
		t, err := tunnel.Start(cfg.SSH)
		if err != nil {
			return fmt.Errorf("ssh tunnel: %w", err)
		}
		defer t.Stop()
		if apiURL, err = t.Rewrite(apiURL); err != nil {
			return err
		}
		if wsURL, err = t.Rewrite(wsURL); err != nil {
			return err
		}
		logger.Info("ssh tunnel ready", "host", cfg.SSH.Host, "local_port", t.LocalPort)
	}

	store, err := credential.Open(cfg.CredentialStore, config.ExpandTilde(cfg.CredentialPath), logger)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	opts := []gateway.Option{gateway.WithLogger(logger)}
	if cfg.IsWebSocket() {
		ws := transport.NewWebSocket(wsURL, gateway.DefaultHeaders(), transport.WebSocketOptions{
			Logger: logger,
			OnStatus: func(s transport.Status) {
				logger.Debug("websocket status", "status", s)
			},
		})
		defer ws.Close()
		opts = append(opts, gateway.WithTransport(ws))
	}

	gw := gateway.New(apiURL, store, gateway.NewCell[gateway.Notifier](), gateway.NewCell[gateway.Navigator](), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting", "version", config.Version, "api", apiURL, "transport", cfg.Transport)
	p := tea.NewProgram(ui.New(ctx, gw, apiURL), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// openLogger writes text logs to cfg.LogFile; the terminal belongs to the TUI.
func openLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	path := config.ExpandTilde(cfg.LogFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}
