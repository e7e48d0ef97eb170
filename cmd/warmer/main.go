package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DanielHemmis/BggCollections/internal/bootstrap"
	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/internal/warmer"
	"github.com/DanielHemmis/BggCollections/pkg/config"
	"github.com/DanielHemmis/BggCollections/pkg/env"
	"github.com/DanielHemmis/BggCollections/pkg/instance"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
)

const lockName = "warmer"

func main() {
	logg := logger.New(logger.Options{ServiceName: "warmer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "warmer",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "instance", instance.GetID())

	usernames, err := collections.NormalizeUsernames(env.List(config.EnvDefaultUsernames))
	if err != nil {
		logg.Error(ctx, "warmer needs "+config.EnvDefaultUsernames, err)
		os.Exit(1)
	}

	app, err := bootstrap.Build(ctx, cfg, logg, bootstrap.Options{})
	if err != nil {
		logg.Error(ctx, "failed to bootstrap aggregation pipeline", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()
	if app.Redis == nil {
		logg.Warn(ctx, "redis not configured; warming only exercises the upstream")
	}

	var lock warmer.Lock = warmer.NewLocalLock()
	if app.Redis != nil {
		lock, err = warmer.NewRedisLock(app.Redis, app.Redis.LockKey(lockName), cfg.Warmer.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create warmer lock", err)
			os.Exit(1)
		}
	}

	job, err := warmer.NewCollectionsJob(app.Collections, usernames, logg)
	if err != nil {
		logg.Error(ctx, "failed to create warm job", err)
		os.Exit(1)
	}

	svc, err := warmer.NewService(warmer.ServiceParams{
		Logger:   logg,
		Jobs:     []warmer.Job{job},
		Lock:     lock,
		Interval: cfg.Warmer.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create warmer", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(runCtx, "warmer started")
	if err := svc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "warmer stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "warmer stopped")
}
