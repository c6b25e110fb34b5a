package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	logg.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("clinic_tz", cfg.ClinicLocation.String()),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PostgresConns)
	cancelPg()
	if err != nil {
		logg.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logg.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		logg.Fatal("migration error", zap.Error(err))
	}

	// Connect Redis. Bookings stay correct without it, only contention
	// resolves at the database instead.
	var locker appointment.SlotLocker
	var redisPing api.Pinger
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logg.Warn("redis unavailable, running without slot lock", zap.Error(err))
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logg.Warn("error closing redis", zap.Error(err))
			}
		}()
		logg.Info("connected to Redis")
		locker = redisclient.NewLocker(rdb, cfg.LockTTL, cfg.LockWait)
		redisPing = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	sender, closeSender, err := notify.Open(cfg.AMQPURL, cfg.NotifyQueue, logg)
	if err != nil {
		logg.Fatal("notification broker error", zap.Error(err))
	}
	defer func() {
		if err := closeSender(); err != nil {
			logg.Warn("error closing notification broker", zap.Error(err))
		}
	}()

	repo := appointment.NewPgRepository(pgPool)
	guard := appointment.NewGuard(repo, locker, logg)
	svc := appointment.NewService(repo, repo, guard, sender, logg)

	router := api.NewRouter(api.RouterConfig{
		Service:     svc,
		Postgres:    pgPool.Ping,
		Redis:       redisPing,
		Log:         logg,
		Env:         cfg.Env,
		Version:     version,
		JWTSecret:   []byte(cfg.JWTSecret),
		Location:    cfg.ClinicLocation,
		RateLimit:   cfg.RateLimitRPS,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logg.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Warn("http server shutdown error", zap.Error(err))
	}

	// let in-flight confirmations reach the broker before it is closed
	svc.Wait()
}
