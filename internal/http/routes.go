package http

import (
	"time"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/config"
	"shop_backoffice/internal/http/handlers"
	"shop_backoffice/internal/http/middleware"
	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the HTTP surface: the payment webhook, probes,
// metrics, the storefront API and the operator group.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, c *cache.Cache, pub service.EventPublisher, cfg *config.Config, version string) {
	h := handlers.NewHandler(db, c, pub)
	webhookHandler := handlers.NewWebhookHandler(h.Repl, cfg.BotToken)
	opsHandler := handlers.NewOpsHandler(db, h.Vouchers, h.Promos)
	healthHandler := handlers.NewHealthHandler(db, version)

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// provider callbacks; signature-checked, never rate limited
	r.POST("/crypto/webhook", webhookHandler.CryptoWebhook)

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, time.Duration(cfg.APIRateWindow)*time.Second))

	api.POST("/users", h.Bootstrap)
	api.GET("/settings", h.Settings)

	authed := api.Group("")
	authed.Use(middleware.JWT())
	{
		authed.GET("/me", h.Me)
		authed.GET("/me/notifications", h.NotificationSettings)
		authed.PUT("/me/notifications", h.UpdateNotificationSettings)

		authed.POST("/payments", h.CreatePayment)

		authed.GET("/vouchers", h.MyVouchers)
		authed.POST("/vouchers", h.CreateVoucher)
		authed.POST("/vouchers/activate", h.ActivateVoucher)

		authed.POST("/promo_codes/activate", h.ActivatePromoCode)

		authed.POST("/transfers", h.Transfer)
	}

	ops := r.Group("/ops")
	ops.Use(middleware.JWT())
	{
		ops.GET("/replenishments/:id", opsHandler.GetReplenishment)
		ops.GET("/stats", opsHandler.Stats)
		ops.GET("/audit", opsHandler.RecentAudit)
		ops.POST("/vouchers", opsHandler.CreateAdminVoucher)
		ops.POST("/promo_codes", opsHandler.CreatePromoCode)
	}
}
