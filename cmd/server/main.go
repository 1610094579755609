package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/campusbuy/internal/auth"
	"github.com/mmynk/campusbuy/internal/config"
	"github.com/mmynk/campusbuy/internal/middleware"
	"github.com/mmynk/campusbuy/internal/router"
	"github.com/mmynk/campusbuy/internal/service"
	"github.com/mmynk/campusbuy/internal/storage"
	"github.com/mmynk/campusbuy/internal/storage/mongo"
	"github.com/mmynk/campusbuy/internal/storage/sqlite"
	"github.com/mmynk/campusbuy/internal/sweeper"
	"github.com/mmynk/campusbuy/pkg/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml if present)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Setup structured logging
	logger := logging.SetupWith(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.Storage.Driver)

	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessDuration,
		cfg.JWT.RefreshDuration,
		cfg.JWT.Issuer,
	)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.JWT.BcryptCost)

	groups := service.NewGroupService(store)
	deps := router.Deps{
		Groups:         groups,
		Contributions:  service.NewContributionService(store, groups),
		Auth:           service.NewAuthService(authenticator, jwtManager, store, logger),
		JWT:            jwtManager,
		Store:          store,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		deps.RateLimiter.StartCleanup(10*time.Minute, ctx.Done())
	}

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(groups, cfg.Sweeper.Schedule)
		if err := sw.Start(ctx); err != nil {
			return err
		}
		defer sw.Stop()
	}

	// Wrap with h2c for HTTP/2 without TLS
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      h2c.NewHandler(router.New(deps), &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		store, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
