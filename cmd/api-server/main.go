package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/homevisit/scheduling-service/internal/api"
	"github.com/homevisit/scheduling-service/internal/audit"
	"github.com/homevisit/scheduling-service/internal/config"
	"github.com/homevisit/scheduling-service/internal/db"
	"github.com/homevisit/scheduling-service/internal/identity"
	redisclient "github.com/homevisit/scheduling-service/internal/redis"
	"github.com/homevisit/scheduling-service/internal/scheduling"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "api-server").
		Logger()

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.Migrate(migCtx, pgPool)
	cancelMig()
	if err != nil {
		log.Fatal().Err(err).Msg("schema migration error")
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	recorder := audit.NewAsyncRecorder(audit.NewPgSink(pgPool), cfg.AuditQueueSize, log)
	defer recorder.Close()

	repo := scheduling.NewPgRepository(pgPool)
	users := identity.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)
	verifier := identity.NewVerifier(cfg.JWTSecret)
	svc := scheduling.NewService(repo, users, locker, recorder, log)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Verifier: verifier,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   log,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", srv.Addr).Msg("http server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
}
