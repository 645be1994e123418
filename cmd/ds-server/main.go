// ds-server runs the Secluso delivery service: the untrusted queueing
// and push-notification relay that camera hubs and paired apps use to
// exchange MLS ciphertexts (spec.md section 4.4).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/secluso/secluso/internal/config"
	"github.com/secluso/secluso/internal/ds"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	ctx := context.Background()
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DS == nil {
		slog.Error("config.yaml has no delivery_service section")
		os.Exit(1)
	}
	dsCfg := cfg.DS

	var credentials *ds.CredentialStore
	if !dsCfg.SkipUserCredentials {
		credentials, err = ds.LoadCredentialStore(dsCfg.UserCredentialsDir)
		if err != nil {
			slog.Error("failed to load user credentials", "dir", dsCfg.UserCredentialsDir, "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("skip_user_credentials set: starting with an empty credential store")
		credentials = &ds.CredentialStore{}
	}

	var ledger ds.LockoutLedger
	if dsCfg.DBDSN != "" {
		pgxLedger, err := ds.NewPgxLedger(ctx, dsCfg.DBDSN)
		if err != nil {
			slog.Warn("could not connect to audit ledger database, continuing without it", "error", err)
		} else {
			defer pgxLedger.Close()
			ledger = pgxLedger
		}
	}

	server := ds.NewServer(dsCfg.DataDir, credentials, ledger)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting delivery service", "addr", dsCfg.ListenAddr, "data_dir", dsCfg.DataDir)
		if err := server.Start(dsCfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("delivery service exited", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("delivery service stopped")
}
