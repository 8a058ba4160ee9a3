package service

import (
	"context"
	"fmt"
	"time"

	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var sweeperExpired = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sweeper_expired_total",
		Help: "Time-bound entities expired by the sweeper",
	},
	[]string{"entity"},
)

func init() {
	prometheus.MustRegister(sweeperExpired)
}

// Sweeper invalidates time-bound entities on a fixed interval: expired promo
// codes, expired vouchers (refunding their creators) and stale pending
// replenishments. Errors in one tick are logged and do not stop the loop.
type Sweeper struct {
	interval time.Duration
	pub      EventPublisher
	promoSvc *PromoCodeService
	vouchSvc *VoucherService
	promos   *repository.PromoCodeRepository
	vouchers *repository.VoucherRepository
	repl     *repository.ReplenishmentRepository
	audits   *repository.AuditRepository
}

func NewSweeper(db *pgxpool.Pool, interval time.Duration, pub EventPublisher, promoSvc *PromoCodeService, vouchSvc *VoucherService) *Sweeper {
	return &Sweeper{
		interval: interval,
		pub:      pub,
		promoSvc: promoSvc,
		vouchSvc: vouchSvc,
		promos:   repository.NewPromoCodeRepository(db),
		vouchers: repository.NewVoucherRepository(db),
		repl:     repository.NewReplenishmentRepository(db),
		audits:   repository.NewAuditRepository(db),
	}
}

// Run loops until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	expiredPromos, err := s.promos.GetExpired(ctx, now)
	if err != nil {
		logger.Error("sweeper: promo scan failed", "error", err)
	}
	for i := range expiredPromos {
		if err := s.promoSvc.Expire(ctx, &expiredPromos[i]); err != nil {
			logger.Error("sweeper: promo expire failed", "promo_code_id", expiredPromos[i].ID, "error", err)
			continue
		}
		sweeperExpired.WithLabelValues("promo_code").Inc()
	}

	expiredVouchers, err := s.vouchers.GetExpired(ctx, now)
	if err != nil {
		logger.Error("sweeper: voucher scan failed", "error", err)
	}
	for i := range expiredVouchers {
		if err := s.vouchSvc.Deactivate(ctx, expiredVouchers[i].ID); err != nil {
			logger.Error("sweeper: voucher deactivate failed", "voucher_id", expiredVouchers[i].ID, "error", err)
			continue
		}
		sweeperExpired.WithLabelValues("voucher").Inc()
	}

	cancelled, err := s.repl.CancelExpired(ctx, now)
	if err != nil {
		logger.Error("sweeper: replenishment cancel failed", "error", err)
	}
	for _, rp := range cancelled {
		audit := &domain.AuditLog{
			UserID:   rp.UserID,
			Action:   domain.AuditActionReplenishmentCancelled,
			Category: domain.AuditCategoryPayment,
			Details:  map[string]interface{}{"replenishment_id": rp.ID},
		}
		if err := s.audits.Create(ctx, audit); err != nil {
			logger.Error("sweeper: cancel audit failed", "replenishment_id", rp.ID, "error", err)
		}
		sweeperExpired.WithLabelValues("replenishment").Inc()
	}

	if n := len(expiredPromos) + len(expiredVouchers) + len(cancelled); n > 0 {
		sendLog(ctx, s.pub,
			fmt.Sprintf("sweeper: expired %d promo codes, %d vouchers, cancelled %d pending replenishments",
				len(expiredPromos), len(expiredVouchers), len(cancelled)),
			events.LogLvlInfo)
	}
}
