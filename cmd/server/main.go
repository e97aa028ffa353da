// Package main is the entry point for the outletstock API server.
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

	"outletstock/internal/config"
	"outletstock/internal/core/security"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/ledger"
	"outletstock/internal/infrastructure/cache"
	v1 "outletstock/internal/infrastructure/http/v1"
	"outletstock/internal/infrastructure/http/v1/handlers"
	"outletstock/internal/infrastructure/http/v1/middleware"
	"outletstock/internal/infrastructure/storage/postgres"
	"outletstock/internal/infrastructure/storage/postgres/source_repo"
	"outletstock/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting outletstock server", "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.App.RunMigrations {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
	}

	txm := postgres.NewTxManager(pool)
	loader := source_repo.NewSnapshotLoader(txm)

	// --- Ledger engine ---
	filter, err := catalog.NewProductFilter(cfg.Ledger.ProductFilter)
	if err != nil {
		log.Fatalw("invalid product filter", "expr", cfg.Ledger.ProductFilter, "error", err)
	}

	var (
		serviceOpts []ledger.Option
		gatewayOpts []ledger.GatewayOption
		rdb         *redis.Client
	)
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer func() { _ = rdb.Close() }()

		serviceOpts = append(serviceOpts, ledger.WithCache(cache.NewLedgerCache(rdb, cfg.Ledger.CacheTTL)))
		gatewayOpts = append(gatewayOpts, ledger.WithLocker(cache.NewLocker(rdb, 0, 0)))
		log.Infow("redis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Ledger.CacheTTL)
	}

	service := ledger.NewService(ledger.NewEngine(filter), loader, txm, serviceOpts...)

	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		log.Fatalw("failed to initialize audit", "error", err)
	}

	gatewayOpts = append(gatewayOpts,
		ledger.WithAudit(audit),
		ledger.WithSyncPublisher(postgres.NewOutboxPublisher(txm)),
		ledger.WithPolicy(security.PolicyFor(cfg.Ledger.ClosedUntil)),
	)
	gateway := ledger.NewGateway(loader.Catalog, loader.Checks, txm, service, gatewayOpts...)

	listener := cache.NewSourceListener(pool.Pool, service)
	listener.Start(ctx)
	defer listener.Stop()

	// --- Router ---
	health := map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(pool.Ping),
	}
	if rdb != nil {
		health["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:    log,
		Ledger:    service,
		Overrides: gateway,
		History:   audit,
		Health:    health,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
