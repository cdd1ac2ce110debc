package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arawak/toolshelf/internal/config"
	"github.com/arawak/toolshelf/internal/httpapi"
	"github.com/arawak/toolshelf/internal/store"
	"github.com/arawak/toolshelf/migrations"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.LogLevel),
	})).With("version", version)

	var apiKeys *httpapi.APIKeyStore
	if cfg.AuthMode == config.AuthAPIKey {
		apiKeys, err = httpapi.LoadAPIKeys(cfg.APIKeysFile)
		if err != nil {
			logger.Error("failed to load api keys", "error", err)
			os.Exit(1)
		}
	}

	if err := migrations.Up(cfg.DBDriver, cfg.DBDSN); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to open db", "error", err)
		os.Exit(1)
	}

	storeSvc := store.New(db)
	router := httpapi.NewRouter(cfg, storeSvc, apiKeys, logger)

	srv := &http.Server{Addr: cfg.Bind, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("server starting", "addr", cfg.Bind, "db_driver", cfg.DBDriver, "auth_mode", string(cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}
