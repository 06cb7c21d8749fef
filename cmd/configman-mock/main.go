// Command configman-mock serves an in-memory configman backend for local
// development of the CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lastscouser/configman-cli/internal/mockbackend"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:1892", "Listen address")
	email := flag.String("email", "admin@example.com", "Accepted sign-in email")
	password := flag.String("password", "admin", "Accepted sign-in password")
	seed := flag.Bool("seed", true, "Pre-populate a few parameters")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	backend := mockbackend.New(*email, *password)
	if *seed {
		backend.Seed(
			mockbackend.Parameter{Group: "general", Key: "site_name", Value: "configman", Description: "Display name"},
			mockbackend.Parameter{Group: "general", Key: "maintenance", Value: "false", Description: "Serve the maintenance page"},
			mockbackend.Parameter{Group: "mail", Key: "smtp_host", Value: "smtp.example.com", Description: "Outgoing mail relay"},
		)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock backend listening", "addr", *addr, "api", "http://"+*addr+"/api", "email", *email)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
