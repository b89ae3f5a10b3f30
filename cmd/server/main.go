package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/player-auction-backend/internal/config"
	"github.com/DoyleJ11/player-auction-backend/internal/httpapi"
	"github.com/DoyleJ11/player-auction-backend/internal/hub"
	"github.com/DoyleJ11/player-auction-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("bad configuration", zap.Error(err))
	}

	log, err := newLogger(cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := store.NewLocalStore(cfg.SnapshotDir)
	if err != nil {
		return err
	}

	var (
		remote store.RemoteStore = store.NopRemote{}
		saved  httpapi.SavedStore
		pg     *store.PostgresStore
	)
	if cfg.DatabaseURL != "" {
		pg, err = store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := pg.Close(); err != nil {
				log.Warn("closing database", zap.Error(err))
			}
		}()
		remote, saved = pg, pg
		log.Info("remote store enabled")
	} else {
		log.Info("DATABASE_URL not set, saved tournaments are disabled")
	}

	h := hub.NewHub(context.Background(), hub.Options{
		Local:  local,
		Remote: remote,
		Sync:   store.SyncOptions{Debounce: cfg.SyncDebounce, Timeout: cfg.SyncTimeout},
		Log:    log,
	})
	n, err := h.Recover(ctx)
	if err != nil {
		log.Warn("recovering tournaments", zap.Error(err))
	}
	log.Info("tournaments recovered", zap.Int("count", n))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, saved, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Lobbies flush their pending remote sync before stopping.
		return multierr.Append(srv.Shutdown(sctx), h.Shutdown(sctx))
	})
	return g.Wait()
}
