package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/config"
	"shop_backoffice/internal/db"
	"shop_backoffice/internal/events"
	httpServer "shop_backoffice/internal/http"
	"shop_backoffice/internal/http/middleware"
	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer c.Close()

	pub := events.NewPublisher(cfg.AmqpURL)

	replSvc := service.NewReplenishmentService(dbPool, c, pub)
	referralSvc := service.NewReferralService(dbPool, c, pub)
	voucherSvc := service.NewVoucherService(dbPool, c, pub)
	promoSvc := service.NewPromoCodeService(dbPool, c, pub)
	purchaseSvc := service.NewPurchaseService(dbPool, c, pub)

	router := events.NewRouter()
	router.Register(events.KeyNewReplenishment, events.Typed(replSvc.HandleNewReplenishment))
	router.Register(events.KeyNewReferral, events.Typed(referralSvc.HandleNewReferral))
	router.Register(events.KeyVoucherActivated, events.Typed(voucherSvc.HandleActivated))
	router.Register(events.KeyPromoCodeActivated, events.Typed(promoSvc.HandleActivated))
	router.Register(events.KeyPurchaseAccount, events.Typed(purchaseSvc.HandlePurchaseAccount))
	router.Register(events.KeyPurchaseUniversal, events.Typed(purchaseSvc.HandlePurchaseUniversal))
	router.Register(events.KeySendLog, events.Typed(handleSendLog))

	// outcome reports are for the notifier; here they only hit the log
	router.Register(events.KeyReplenishmentCompleted, events.Typed(func(ctx context.Context, p events.ReplenishmentCompleted) error {
		logger.Debug("replenishment completed", "replenishment_id", p.ReplenishmentID, "user_id", p.UserID)
		return nil
	}))
	router.Register(events.KeyReplenishmentFailed, events.Typed(func(ctx context.Context, p events.ReplenishmentFailed) error {
		logger.Debug("replenishment failed", "replenishment_id", p.ReplenishmentID, "user_id", p.UserID)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := events.NewConsumer(cfg.AmqpURL, router)
	go consumer.Run(ctx)

	sweeper := service.NewSweeper(dbPool, cfg.SweepInterval, pub, promoSvc, voucherSvc)
	go sweeper.Run(ctx)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()
	httpServer.RegisterRoutes(r, dbPool, c, pub, cfg, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// handleSendLog forwards operational reports to the process log. The chat
// notifier consumes the same events from its own queue.
func handleSendLog(ctx context.Context, p events.SendLog) error {
	switch p.LogLvl {
	case events.LogLvlError:
		logger.Error(p.Text)
	case events.LogLvlWarning:
		logger.Warn(p.Text)
	default:
		logger.Info(p.Text)
	}
	return nil
}
