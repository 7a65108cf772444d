package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cecil-the-coder/modelwatch/internal/config"
	"github.com/cecil-the-coder/modelwatch/pkg/backend"
	"github.com/cecil-the-coder/modelwatch/pkg/dashboard"
	"github.com/cecil-the-coder/modelwatch/pkg/quota"
	"github.com/cecil-the-coder/modelwatch/pkg/resolver"
	"github.com/cecil-the-coder/modelwatch/pkg/sources"
	"github.com/cecil-the-coder/modelwatch/pkg/sources/database"
	"github.com/cecil-the-coder/modelwatch/pkg/sources/github"
	"github.com/cecil-the-coder/modelwatch/pkg/sources/static"
	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sources. temp-data is always present; the others join when configured.
	staticSource := static.New()
	srcs := []sources.Source{staticSource}

	githubSource := github.New(github.Config{
		BaseURL:  cfg.GitHub.SnapshotBaseURL(),
		Token:    cfg.GitHub.Token,
		LocalDir: cfg.GitHub.LocalDir,
	}, logger)
	srcs = append(srcs, githubSource)

	if cfg.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Fatal("parse database url", zap.Error(err))
		}
		poolCfg.MaxConns = cfg.Database.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			logger.Fatal("create database pool", zap.Error(err))
		}
		defer pool.Close()

		var cache *redis.Client
		if cfg.Redis.Addr != "" {
			cache = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer func() { _ = cache.Close() }()
		}

		dbSource := database.New(pool, cache, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := dbSource.Ping(pingCtx); err != nil {
			// The database is expected to be flaky; the chain exists for
			// exactly this. Log and keep it registered.
			logger.Warn("database unreachable at startup", zap.Error(err))
		}
		cancel()
		srcs = append(srcs, dbSource)
	} else {
		logger.Info("no database configured, source disabled")
	}

	registry := prometheus.NewRegistry()
	chain := resolver.New(logger, resolver.NewMetrics(registry), srcs...)

	// Quota monitor.
	defs := quota.DefaultDefinitions()
	if cfg.Quota.DefinitionsFile != "" {
		loaded, err := quota.LoadDefinitions(cfg.Quota.DefinitionsFile)
		if err != nil {
			logger.Fatal("load quota definitions", zap.Error(err))
		}
		defs = loaded
	}
	monitor := quota.NewMonitor(defs, &quota.LogNotifier{Logger: logger}, logger)
	go monitor.Run(ctx, cfg.Quota.PollInterval)

	preferred := func() types.SourceName { return cfg.PreferredSource() }

	// Display cache: live data through the chain, persisted between runs,
	// bottoming out on the embedded dataset.
	fetch := func(ctx context.Context) ([]types.Model, error) {
		result, err := chain.ResolveModels(ctx, preferred(), types.ModelFilters{})
		if err != nil {
			return nil, err
		}
		return result.Data, nil
	}
	display := dashboard.New(
		dashboard.NewFileStore(cfg.Dashboard.CachePath),
		fetch,
		staticSource.Models(),
		logger,
	)

	srv := backend.NewServer(backend.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Version:      version,
		RateLimit:    cfg.Server.RateLimit,
		Burst:        cfg.Server.Burst,
	}, logger, chain, monitor, display, preferred, registry)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}
}

func buildLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
