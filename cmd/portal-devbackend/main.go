// Command portal-devbackend serves the in-memory identity backend over the
// same REST contract the portal's backend client speaks. Verification codes
// are written to the log instead of being emailed.
//
// Seeded accounts:
//
//	admin@portal.local        Admin1234    identification 1700000001
//	coordinador@portal.local  Coord1234    identification 1700000002
//	cliente@portal.local      Cliente1234  identification 1700000003
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/goPortal/internal/appconfig"
	"github.com/MrEthical07/goPortal/internal/devbackend"
	"github.com/MrEthical07/goPortal/password"
)

func main() {
	if err := run(); err != nil {
		slog.Error("portal-devbackend stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	store, err := devbackend.NewStore(devbackend.DefaultCatalog(), devbackend.Options{
		Hasher:  hasher,
		CodeTTL: cfg.DevBackend.CodeTTL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := store.Seed(devbackend.DefaultUsers()...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:         cfg.DevBackend.Addr,
		Handler:      devbackend.Handler(store, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dev backend listening", "addr", cfg.DevBackend.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
