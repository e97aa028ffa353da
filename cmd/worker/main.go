// Package main is the entry point for the outletstock background worker. It
// keeps cached ledgers warm and relays stock check rewrites from the outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"outletstock/internal/config"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/ledger"
	"outletstock/internal/infrastructure/cache"
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

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting outletstock worker")

	if !cfg.Redis.Enabled() {
		log.Fatal("REDIS_ADDR is required by the worker")
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = rdb.Close() }()

	filter, err := catalog.NewProductFilter(cfg.Ledger.ProductFilter)
	if err != nil {
		log.Fatalw("invalid product filter", "expr", cfg.Ledger.ProductFilter, "error", err)
	}

	txm := postgres.NewTxManager(pool)
	loader := source_repo.NewSnapshotLoader(txm)
	ledgerCache := cache.NewLedgerCache(rdb, cfg.Ledger.CacheTTL)
	service := ledger.NewService(ledger.NewEngine(filter), loader, txm, ledger.WithCache(ledgerCache))

	relay := postgres.NewOutboxRelay(txm, cfg.Worker.OutboxSize, cache.NewSyncRelayHandler(rdb, ledgerCache))
	worker := NewWorker(loader.Catalog, service, relay, cfg.Worker.Interval, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx, func(ctx context.Context) { postgres.LogPoolStats(ctx, pool) })
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
