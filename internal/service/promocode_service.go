package service

import (
	"context"
	"fmt"
	"time"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PromoCodeService owns the promo-code lifecycle.
type PromoCodeService struct {
	db     *pgxpool.Pool
	cache  *cache.Cache
	pub    EventPublisher
	promos *repository.PromoCodeRepository
	audits *repository.AuditRepository
}

func NewPromoCodeService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *PromoCodeService {
	return &PromoCodeService{
		db:     db,
		cache:  c,
		pub:    pub,
		promos: repository.NewPromoCodeRepository(db),
		audits: repository.NewAuditRepository(db),
	}
}

// Create validates and inserts a promo code. Amount and discount percentage
// are mutually exclusive; exactly one must be set.
func (s *PromoCodeService) Create(ctx context.Context, p *domain.PromoCode) error {
	if (p.Amount == nil) == (p.DiscountPercentage == nil) {
		return ErrInvalidPromo
	}
	if p.Amount != nil && *p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if p.DiscountPercentage != nil && (*p.DiscountPercentage <= 0 || *p.DiscountPercentage > 100) {
		return ErrInvalidAmount
	}
	if p.NumberOfActivations <= 0 {
		return ErrInvalidAmount
	}

	exists, err := s.promos.ValidCodeExists(ctx, p.Code)
	if err != nil {
		return err
	}
	if exists {
		return ErrCodeExists
	}

	p.IsValid = true
	if err := s.promos.Create(ctx, p); err != nil {
		return err
	}

	cache.Refresh(ctx, s.cache, cache.PromoCodeKey(p.Code), p, cache.ExpiryTTL(p.ExpireAt, time.Now()))
	return nil
}

// getCachedByCode is the read-through promo fetch keyed by code. The
// write-back lives no longer than the promo code itself.
func (s *PromoCodeService) getCachedByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return cache.GetOneTTL(ctx, s.cache, cache.PromoCodeKey(code),
		func(ctx context.Context) (*domain.PromoCode, error) {
			return s.promos.GetValidByCode(ctx, code)
		},
		func(p *domain.PromoCode) time.Duration {
			return cache.ExpiryTTL(p.ExpireAt, time.Now())
		})
}

// Activate is the synchronous side: validate the code for a user and emit
// promo_code.activated. The counter bookkeeping happens in HandleActivated.
func (s *PromoCodeService) Activate(ctx context.Context, userID int64, code string) (*domain.PromoCode, error) {
	p, err := s.getCachedByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsValid {
		return nil, ErrPromoCodeNotFound
	}

	used, err := s.promos.ActivationExists(ctx, p.ID, userID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrAlreadyActivated
	}
	if p.Expired(time.Now()) || p.Exhausted() {
		return nil, ErrPromoCodeNotFound
	}

	err = s.pub.Publish(ctx, events.NewActivatePromoCode{PromoCodeID: p.ID, UserID: userID})
	if err != nil {
		logger.Error("promo_code.activated publish failed", "promo_code_id", p.ID, "error", err)
		return nil, err
	}
	return p, nil
}

// HandleActivated records one promo activation: activation row, counter
// increment, invalidation when exhausted or expired, audit row. Idempotency:
// the unique (promo_code_id, user_id) activation row.
func (s *PromoCodeService) HandleActivated(ctx context.Context, p events.NewActivatePromoCode) error {
	exists, err := s.promos.ActivationExists(ctx, p.PromoCodeID, p.UserID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	promo, err := s.promos.GetForUpdateTx(ctx, tx, p.PromoCodeID)
	if err != nil {
		return err
	}
	if promo == nil {
		logger.Warn("promo code missing, dropping activation", "promo_code_id", p.PromoCodeID)
		return nil
	}
	if !promo.IsValid {
		// Invalidated between the synchronous check and this event; the
		// counter must not move past the limit.
		sendLog(ctx, s.pub,
			fmt.Sprintf("promo code %d activation by user %d dropped: code no longer valid", promo.ID, p.UserID),
			events.LogLvlWarning)
		return nil
	}

	activation := &domain.ActivatedPromoCode{PromoCodeID: promo.ID, UserID: p.UserID}
	if err := s.promos.CreateActivationTx(ctx, tx, activation); err != nil {
		return err
	}

	counter, err := s.promos.IncrementActivatedTx(ctx, tx, promo.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	expired := promo.Expired(now)
	invalid := counter >= promo.NumberOfActivations || expired
	if invalid {
		if err := s.promos.InvalidateTx(ctx, tx, promo.ID); err != nil {
			return err
		}
	}

	audit := &domain.AuditLog{
		UserID:   p.UserID,
		Action:   domain.AuditActionPromoActivated,
		Category: domain.AuditCategoryPromo,
		Details: map[string]interface{}{
			"promo_code_id": promo.ID,
			"counter":       counter,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if invalid {
		s.cache.Invalidate(ctx, cache.PromoCodeKey(promo.Code))
	}
	sendLog(ctx, s.pub,
		fmt.Sprintf("promo code %d activated by user %d", promo.ID, p.UserID),
		events.LogLvlInfo)
	if expired {
		sendLog(ctx, s.pub,
			fmt.Sprintf("promo code %d expired", promo.ID),
			events.LogLvlInfo)
	}
	return nil
}

// Expire invalidates one expired promo code from the sweeper path.
func (s *PromoCodeService) Expire(ctx context.Context, promo *domain.PromoCode) error {
	if err := s.promos.Invalidate(ctx, promo.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.PromoCodeKey(promo.Code))
	sendLog(ctx, s.pub,
		fmt.Sprintf("promo code %d (%s) expired and was deactivated", promo.ID, promo.Code),
		events.LogLvlInfo)
	return nil
}
