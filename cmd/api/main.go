package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deposit-ledger/config"
	httpHandler "deposit-ledger/internal/adapter/http/handler"
	pgStorage "deposit-ledger/internal/adapter/storage/postgres"
	redisStorage "deposit-ledger/internal/adapter/storage/redis"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/internal/metrics"
	"deposit-ledger/internal/service"
	"deposit-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Deposit Ledger Engine")

	ctx := context.Background()

	// Register Prometheus collectors
	metrics.Init()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	depositRepo := pgStorage.NewDepositRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	walletTxRepo := pgStorage.NewWalletTransactionRepo(pool)
	historyRepo := pgStorage.NewStatusHistoryRepo(pool)
	auditRepo := pgStorage.NewAuditLogRepo(pool)
	reversalRepo := pgStorage.NewReversalRepo(pool)
	reconciliationRepo := pgStorage.NewReconciliationRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	resultCache := redisStorage.NewResultCache(rdb)
	rateSource := redisStorage.NewRateCache(rateRepo, rdb, cfg.Engine.RateCacheTTL, log)

	// Initialize engine services
	converter := service.NewConverter(rateSource, cfg.Engine.RateFreshWithin, log)
	ledger := service.NewLedger(walletRepo, walletTxRepo, converter, log)
	recorder := service.NewRecorder(historyRepo, auditRepo, reversalRepo, log)
	reconciler := service.NewReconciler(depositRepo, walletRepo, reconciliationRepo, cfg.Engine.ReconcileTolerance, log)
	depositSvc := service.NewDepositService(
		depositRepo,
		ledger,
		recorder,
		reconciler,
		historyRepo,
		auditRepo,
		resultCache,
		transactor,
		cfg.Engine.IdempotencyTTL,
		cfg.Engine.AuditHistoryLimit,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DepositSvc:     depositSvc,
		WalletTxRepo:   walletTxRepo,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
