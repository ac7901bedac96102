package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Proctor/internal/adapters/http"
	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/config"
	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	sessionStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open session store")
	}
	defer closeStore()

	policy, err := app.ParsePolicy(cfg.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backpressure policy")
	}
	orphans, err := orch.ParseOrphanPolicy(cfg.OrphanPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("bad orphan policy")
	}

	sessions := app.NewSessionController(sessionStore)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Sessions: sessions,
		Policy:   policy,
		Orphans:  orphans,
	}
	sessions.OnDelete = o.SessionDeleted

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("Proctor server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (core.SessionStore, func(), error) {
	if cfg.Store.Driver != "redis" {
		return store.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rs := store.NewRedisStore(client, cfg.Redis.Prefix)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	return rs, func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}, nil
}
