package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/notify"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
	"github.com/hackgods/clinic-scheduling/internal/reminder"
)

func main() {
	once := flag.Bool("once", false, "run a single reminder scan and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	logg.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.String("cron", cfg.ReminderCron),
		zap.String("clinic_tz", cfg.ClinicLocation.String()),
		zap.Bool("once", *once),
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

	// Each reminder day is claimed in redis and the claim outlives the day,
	// so replicas never send the same reminder twice.
	var locker reminder.Claimer
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logg.Warn("redis unavailable, running without day claims", zap.Error(err))
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logg.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewLocker(rdb, cfg.ReminderTimeout, 0)
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
	job := reminder.NewJob(repo, sender, cfg.ClinicLocation, logg)
	worker := reminder.NewWorker(job, locker, cfg.ReminderCron, cfg.ReminderTimeout, logg)

	if *once {
		if _, err := worker.RunOnce(rootCtx, time.Now()); err != nil {
			logg.Error("reminder run error", zap.Error(err))
		}
		return
	}

	worker.Start(rootCtx)
	<-rootCtx.Done()

	logg.Info("shutdown signal received, stopping reminder worker")
	worker.Stop()
}
