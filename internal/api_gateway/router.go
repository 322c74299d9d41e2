package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace-balance-ledger/internal/api_gateway/handler"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

type handlers struct {
	account    *handler.AccountHandler
	withdrawal *handler.WithdrawalHandler
	admin      *handler.AdminHandler
	payment    *handler.PaymentHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, cfg *config.Config, deps Dependencies, h handlers) {
	// CorrelationID runs before Logger so the request line carries the id
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	verifier := middleware.NewTokenVerifier(&cfg.Auth)

	// POST /me/withdrawals honours Idempotency-Key only when a cache is configured
	createWithdrawal := []gin.HandlerFunc{h.withdrawal.Create}
	if deps.Cache != nil {
		createWithdrawal = append([]gin.HandlerFunc{
			middleware.Idempotency(deps.Cache, cfg.Redis.IdempotencyTTL, logger),
		}, createWithdrawal...)
	}

	v1 := r.Group("/api/v1")
	{
		me := v1.Group("/me", middleware.Auth(verifier))
		{
			me.POST("/account", h.account.Open)
			me.GET("/balance", h.account.GetBalance)
			me.GET("/sales/stats", h.account.GetSalesStats)
			me.GET("/activity", h.account.GetActivity)

			me.GET("/withdrawals", h.withdrawal.List)
			me.POST("/withdrawals", createWithdrawal...)
			me.DELETE("/withdrawals/:id", h.withdrawal.Delete)
		}

		admin := v1.Group("/admin", middleware.Auth(verifier), middleware.RequireRole(shared.RoleAdmin))
		{
			admin.GET("/withdrawals", h.admin.ListWithdrawals)
			admin.PATCH("/withdrawals/:id", h.admin.UpdateWithdrawal)
			admin.POST("/accounts/:id/reconcile", h.admin.ReconcileBalance)
		}

		// Guests may buy, so the token is optional here
		v1.POST("/payments/verify", middleware.OptionalAuth(verifier), h.payment.Verify)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
