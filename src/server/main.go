package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/secret-recovery/server/src/server/config"
	"github.com/secret-recovery/server/src/server/handlers"
	"github.com/secret-recovery/server/src/server/logging"
	"github.com/secret-recovery/server/src/server/middleware"
	"github.com/secret-recovery/server/src/server/recovery"
	"github.com/secret-recovery/server/src/server/storage"
	"github.com/secret-recovery/server/src/server/store"
	"github.com/secret-recovery/server/src/server/store/postgres"
	"github.com/secret-recovery/server/src/server/store/sqlite"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	objects, err := openStorage(cfg)
	if err != nil {
		return err
	}

	var requireAuth func(http.Handler) http.Handler
	if cfg.AuthEnabled {
		requireAuth = middleware.RequireAuth(middleware.AuthConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		})
		slog.Info("Auth enabled for write routes", "issuer", cfg.AuthIssuer)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Health: &handlers.HealthHandler{Store: s, Storage: objects},
		Reconstructions: &handlers.ReconstructionHandler{
			Service:  &recovery.Service{Store: s, Storage: objects},
			Store:    s,
			Storage:  objects,
			MaxBatch: cfg.MaxBatch,
		},
		CORSOrigins: cfg.CORSOrigins,
		RequireAuth: requireAuth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Secret recovery server listening", "port", cfg.Port, "store", cfg.StoreBackend, "storage", cfg.StorageBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := pg.Migrate(); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil

	case "sqlite":
		sq, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		if err := sq.Migrate(); err != nil {
			sq.Close()
			return nil, nil, err
		}
		return sq, func() { sq.Close() }, nil

	case "memory", "":
		ms := store.NewMemoryStore()
		if cfg.DocumentsDir != "" {
			if err := ms.LoadDocuments(cfg.DocumentsDir); err != nil {
				return nil, nil, fmt.Errorf("loading documents: %w", err)
			}
			slog.Info("Documents reconstructed at startup", "dir", cfg.DocumentsDir)
		}
		return ms, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func openStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating S3 client: %w", err)
		}
		return s3, nil
	case "local":
		return storage.NewLocal(cfg.StorageDir)
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}
