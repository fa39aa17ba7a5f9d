package handler

import (
	"deposit-ledger/internal/adapter/http/middleware"
	"deposit-ledger/internal/core/ports"
	"deposit-ledger/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DepositSvc     ports.DepositStatusService
	WalletTxRepo   ports.WalletTransactionRepository
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// Authentication happens upstream of this service; callers arrive with a
// resolved admin identity.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")

	depositHandler := NewDepositHandler(deps.DepositSvc)
	deposits := v1.Group("/deposits")
	{
		deposits.POST("/:id/status", depositHandler.ChangeStatus)
		deposits.GET("/:id/audit", depositHandler.GetAuditHistory)
	}

	walletHandler := NewWalletHandler(deps.DepositSvc, deps.WalletTxRepo)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("/:id/reconcile", walletHandler.Reconcile)
		wallets.GET("/:id/transactions", walletHandler.ListTransactions)
	}

	return r
}
