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

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/auth"
	"github.com/yourorg/comps-api/internal/config"
	"github.com/yourorg/comps-api/internal/logx"
	"github.com/yourorg/comps-api/internal/redisx"
	"github.com/yourorg/comps-api/internal/snapshot"
	"github.com/yourorg/comps-api/internal/store"
	"github.com/yourorg/comps-api/internal/valuation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log, closeLog, err := logx.New(cfg.LogxConfig())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closeLog()
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("store open: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.Ping(ctx); err != nil {
		cancel()
		return fmt.Errorf("postgres ping: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		cancel()
		return fmt.Errorf("postgres migrate: %w", err)
	}
	rdb := redisx.New(cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		cancel()
		return fmt.Errorf("redis ping: %w", err)
	}
	cancel()

	client := acumidata.NewClient(cfg.ClientConfig(log.With("component", "acumidata")))
	svc := &valuation.Service{
		Client:   client,
		Recorder: &snapshot.Recorder{Store: st, Log: log},
		Limits:   cfg.Limits(),
		Log:      log.With("component", "valuation"),
	}
	accounts := &auth.Service{Users: st, Sessions: rdb, TTL: cfg.Session.TTL, Log: log.With("component", "auth")}

	router := BuildRouter(RouterDeps{
		Config: cfg,
		Log:    log,
		Auth:   accounts,
		Lookup: svc,
		Checks: map[string]func(context.Context) error{
			"postgres": st.Ping,
			"redis":    rdb.Ping,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("comps-api listening", "port", cfg.Port, "acumidata", client.BaseURL())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-rootCtx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
