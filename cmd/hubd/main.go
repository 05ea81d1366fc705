// Package main is the entry point for the Aqyl learning hub daemon.
//
// The hub authenticates opaque access codes into sessions, tracks progression
// through the learning worlds, aggregates scores with a best-attempt policy
// and keeps devices converged through the cross-device synchronizer.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure progression, catalog and achievement logic
// - Application: use case orchestration (Commands/Queries/Sync)
// - Infrastructure: persistence, caching, messaging, content loading
// - Interface: HTTP endpoints for the rendering layer
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aqyl-hub/aqyl-learning-hub/config"

	// Domain layer
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"

	// Application layer
	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/command"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/application/query"
	appsync "github.com/aqyl-hub/aqyl-learning-hub/internal/application/sync"

	// Infrastructure layer
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/content"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/messaging"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/memory"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/aqyl-hub/aqyl-learning-hub/internal/interface/http"

	"github.com/aqyl-hub/aqyl-learning-hub/pkg/retry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting aqyl learning hub",
		"environment", cfg.App.Environment,
		"sync_interval", cfg.Sync.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Content
	// ─────────────────────────────────────────────────────────────────────────

	cat, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	achievementContent, err := loadAchievements(cfg)
	if err != nil {
		return fmt.Errorf("load achievements: %w", err)
	}

	engine, err := achievement.NewEngine(achievementContent)
	if err != nil {
		return fmt.Errorf("build achievement engine: %w", err)
	}

	logger.Info("content loaded",
		"worlds", cat.WorldCount(),
		"achievements", len(engine.Definitions()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// Persistence
	// ─────────────────────────────────────────────────────────────────────────

	var (
		store        session.Store
		storeChecker httpserver.HealthChecker
		cacheChecker httpserver.HealthChecker
		liveness     command.LivenessRecorder
	)

	if cfg.Database.InMemory {
		logger.Warn("using in-memory session store, data will not survive restarts")
		store = memory.NewSessionStore(memory.WithExpiry(cfg.Database.SessionExpiry))
	} else {
		pgConfig := postgres.DefaultConfig()
		pgConfig.Host = cfg.Database.Host
		pgConfig.Port = cfg.Database.Port
		pgConfig.User = cfg.Database.User
		pgConfig.Password = cfg.Database.Password
		pgConfig.Database = cfg.Database.Database
		pgConfig.SSLMode = cfg.Database.SSLMode
		pgConfig.MaxConns = int32(cfg.Database.MaxConns)
		pgConfig.MinConns = int32(cfg.Database.MinConns)
		pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		// The database may still be coming up when the hub starts; retry the
		// connection with backoff before giving up.
		var conn *postgres.Connection
		connErr := retry.StoreRetrier().Do(ctx, func(ctx context.Context) error {
			c, err := postgres.Connect(ctx, pgConfig)
			if err != nil {
				return retry.Retryable(err)
			}
			conn = c
			return nil
		})
		if connErr != nil {
			return fmt.Errorf("connect postgres: %w", connErr)
		}
		defer conn.Close()

		if migErr := postgres.Migrate(ctx, conn); migErr != nil {
			return fmt.Errorf("run migrations: %w", migErr)
		}

		store = postgres.NewSessionStore(conn, postgres.SessionStoreConfig{
			ExpireAfter: cfg.Database.SessionExpiry,
		})
		storeChecker = conn
	}

	if cfg.Redis.Enabled {
		redisConfig := redis.DefaultConfig()
		redisConfig.Host = cfg.Redis.Host
		redisConfig.Port = cfg.Redis.Port
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB

		cache := redis.NewCache(redisConfig)
		if pingErr := cache.Ping(ctx); pingErr != nil {
			logger.Warn("redis unreachable, continuing without cache", "error", pingErr)
			_ = cache.Close()
		} else {
			defer cache.Close()
			cached := redis.NewCachedStore(store, cache, logger,
				redis.WithExpiry(cfg.Database.SessionExpiry))
			store = cached
			liveness = cached
			cacheChecker = cache
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Messaging
	// ─────────────────────────────────────────────────────────────────────────

	bus := messaging.NewInMemoryEventBus(messaging.Config{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		Logger:         logger,
	})
	defer bus.Close()

	// Analytics sink: every domain event is logged with its payload. External
	// consumers subscribe the same way.
	if err := bus.SubscribeAll(func(event shared.Event) error {
		logger.Info("analytics event",
			"event_type", event.EventType(),
			"session_id", event.AggregateID(),
			"payload", event.Payload(),
		)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe analytics sink: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Application
	// ─────────────────────────────────────────────────────────────────────────

	synchronizer := appsync.NewSynchronizer(store, bus, appsync.Config{
		Interval: cfg.Sync.Interval,
		Logger:   logger,
	})
	defer synchronizer.Close()

	deps := httpserver.Dependencies{
		AuthenticateHandler:  command.NewAuthenticateHandler(store, cat, bus, liveness, logger),
		StartWorldHandler:    command.NewStartWorldHandler(store, bus, logger),
		CompleteWorldHandler: command.NewCompleteWorldHandler(store, cat, engine, bus, logger),
		ReplayWorldHandler:   command.NewReplayWorldHandler(store, bus, logger),
		GetProgressHandler:   query.NewGetProgressHandler(store, cat, engine),
		Synchronizer:         synchronizer,
		Logger:               logger,
		StoreChecker:         storeChecker,
		CacheChecker:         cacheChecker,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP Server
	// ─────────────────────────────────────────────────────────────────────────

	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpserver.NewServer(serverConfig, deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// setupLogger builds the process-wide slog logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// loadCatalog returns the configured catalog file or the built-in path.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Content.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return content.LoadCatalog(cfg.Content.CatalogPath)
}

// loadAchievements returns the configured achievement content or the built-in set.
func loadAchievements(cfg *config.Config) (achievement.Content, error) {
	if cfg.Content.AchievementsPath == "" {
		return achievement.BuiltinContent{}, nil
	}
	return content.LoadAchievements(cfg.Content.AchievementsPath)
}
