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

	"github.com/p-n-ai/pai-classroom/internal/api"
	"github.com/p-n-ai/pai-classroom/internal/attempt"
	"github.com/p-n-ai/pai-classroom/internal/curriculum"
	"github.com/p-n-ai/pai-classroom/internal/platform/config"
	"github.com/p-n-ai/pai-classroom/internal/platform/database"
	"github.com/p-n-ai/pai-classroom/internal/platform/logging"
	"github.com/p-n-ai/pai-classroom/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// setup wires the catalog, the attempt store and the HTTP router.
func setup(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	catalog, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load curriculum: %w", err)
	}

	blobs, err := storage.NewFSStore(cfg.Store.BlobPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob store: %w", err)
	}

	var (
		attempts attempt.Service
		checks   = map[string]api.ReadyCheck{}
		cleanup  = func() {}
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		store, err := attempt.NewPostgresStore(db.Pool, blobs)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		attempts = store
		checks["database"] = db.HealthCheck
		cleanup = db.Close
	default:
		store := attempt.NewMemoryStore(blobs)
		if cfg.Store.SeedPath != "" {
			n, err := store.SeedFromFile(cfg.Store.SeedPath)
			if err != nil {
				return nil, nil, fmt.Errorf("seed memory store: %w", err)
			}
			slog.Info("seeded memory store", "path", cfg.Store.SeedPath, "attempts", n)
		} else {
			slog.Warn("memory attempt store starts empty and is for development only; set LEARN_STORE_SEED_PATH or use the postgres driver")
		}
		attempts = store
	}

	handler := api.NewRouter(api.Options{
		Catalog:        catalog,
		Attempts:       attempts,
		TokenHash:      cfg.Auth.TokenHash,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadyChecks:    checks,
	})
	return handler, cleanup, nil
}
