package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"settlement-core.backend/internal/interfaces/http/handlers"
	"settlement-core.backend/internal/interfaces/http/middleware"
	"settlement-core.backend/pkg/jwt"
	"settlement-core.backend/pkg/metrics"
)

const (
	serviceName    = "settlement-core"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	commissionHandler *handlers.CommissionHandler
	trustScoreHandler *handlers.TrustScoreHandler
	payoutHandler     *handlers.PayoutHandler
	ledgerHandler     *handlers.LedgerHandler
	settlementHandler *handlers.SettlementHandler
	authMiddleware    gin.HandlerFunc
	// idempotency is nil when Redis is not configured.
	idempotency gin.HandlerFunc
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	idem := d.idempotency
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}
	adminOrService := middleware.RequireAdminOrService()
	admin := middleware.RequireAdmin()

	v1 := r.Group("/api/v1")
	v1.Use(d.authMiddleware)
	{
		commission := v1.Group("/commission")
		{
			commission.POST("/resolve", adminOrService, d.commissionHandler.Resolve)

			rules := commission.Group("/rules")
			rules.Use(admin)
			rules.GET("", d.commissionHandler.ListRules)
			rules.POST("", idem, d.commissionHandler.CreateRule)
			rules.GET("/:id", d.commissionHandler.GetRule)
			rules.POST("/:id/deactivate", d.commissionHandler.DeactivateRule)
		}

		v1.GET("/trust-score/:partyId", d.trustScoreHandler.GetScore)

		v1.POST("/jobs/:jobId/payout", adminOrService, idem, d.payoutHandler.SettleJob)

		ledger := v1.Group("/ledger")
		{
			ledger.POST("/holds/:jobPaymentId/release", admin, idem, d.ledgerHandler.ReleaseHold)

			ledger.POST("/:walletId/credit", adminOrService, idem, d.ledgerHandler.Credit)
			ledger.POST("/:walletId/debit", adminOrService, idem, d.ledgerHandler.Debit)
			ledger.GET("/:walletId/balance", d.ledgerHandler.Balance)
			ledger.GET("/:walletId/entries", d.ledgerHandler.Entries)
			ledger.GET("/:walletId/verify", admin, d.ledgerHandler.Verify)
			ledger.POST("/:walletId/withdrawals", idem, d.ledgerHandler.RequestWithdrawal)
			ledger.GET("/:walletId/withdrawals", d.ledgerHandler.ListWithdrawals)
		}

		v1.POST("/withdrawals/:id/callback", middleware.RequireRole(jwt.RoleService), idem, d.ledgerHandler.WithdrawalCallback)

		settlements := v1.Group("/settlements")
		{
			settlements.POST("", adminOrService, idem, d.settlementHandler.Create)
			settlements.GET("", adminOrService, d.settlementHandler.List)
			settlements.GET("/:id", admin, d.settlementHandler.Get)
			settlements.POST("/:id/approve", admin, d.settlementHandler.Approve)
			settlements.POST("/:id/hold", admin, d.settlementHandler.Hold)
			settlements.POST("/:id/release", admin, d.settlementHandler.Release)
			settlements.POST("/:id/mark-paid", admin, idem, d.settlementHandler.MarkPaid)
		}
	}
}
