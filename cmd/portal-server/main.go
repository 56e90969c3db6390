// Command portal-server serves the portal: guarded screens, the session API
// and the verification and recovery wizards.
//
// With DEV=true and no BACKEND_URL it runs self-contained, on an embedded
// Redis and the in-memory development backend seeded with demo accounts.
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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/backend"
	"github.com/MrEthical07/goPortal/internal/appconfig"
	"github.com/MrEthical07/goPortal/internal/devbackend"
	"github.com/MrEthical07/goPortal/internal/server"
	"github.com/MrEthical07/goPortal/metrics/export/prometheus"
	"github.com/MrEthical07/goPortal/password"
)

func main() {
	if err := run(); err != nil {
		slog.Error("portal-server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	portalCfg, err := cfg.PortalConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}

	builder := goPortal.New().
		WithConfig(portalCfg).
		WithRedis(rdb).
		WithBackend(be).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		sink, closeSink, err := openAuditSink(cfg.Audit.File, logger)
		if err != nil {
			return err
		}
		defer closeSink()
		builder = builder.WithAuditSink(sink)
	}
	portal, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build portal: %w", err)
	}
	defer portal.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = portal.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	srv := server.New(portal, server.Options{
		Logger:       logger,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		TrustProxy:   cfg.HTTP.TrustProxy,
		CookieSecure: cfg.HTTP.CookieSecure,
		Metrics:      prometheus.New(portal).Handler(),
	})
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("portal listening", "addr", cfg.HTTP.Addr, "dev", cfg.IsDev)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		srv.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRedis(cfg appconfig.AppConfig, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Redis.Addr
	var mr *miniredis.Miniredis
	if cfg.IsDev && os.Getenv("REDIS_ADDR") == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		logger.Info("using embedded redis", "addr", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

func openBackend(cfg appconfig.AppConfig, logger *slog.Logger) (goPortal.Backend, error) {
	if cfg.Backend.URL != "" {
		return backend.New(backend.Config{
			BaseURL:           cfg.Backend.URL,
			Timeout:           cfg.Backend.Timeout,
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Burst:             cfg.Backend.Burst,
		})
	}
	if !cfg.IsDev {
		return nil, errors.New("BACKEND_URL is required outside dev mode")
	}

	logger.Warn("no BACKEND_URL, using the in-memory development backend")
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	store, err := devbackend.NewStore(devbackend.DefaultCatalog(), devbackend.Options{
		Hasher:  hasher,
		CodeTTL: cfg.DevBackend.CodeTTL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Seed(devbackend.DefaultUsers()...); err != nil {
		return nil, err
	}
	return store, nil
}

// openAuditSink logs audit events through logger and, when path is set,
// appends them to path as JSON lines.
func openAuditSink(path string, logger *slog.Logger) (goPortal.AuditSink, func(), error) {
	slogSink := goPortal.NewSlogSink(logger)
	if path == "" {
		return slogSink, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit file: %w", err)
	}
	logger.Info("audit file enabled", "path", path)
	return goPortal.TeeAuditSinks(slogSink, goPortal.NewJSONLinesSink(f)), func() { _ = f.Close() }, nil
}
