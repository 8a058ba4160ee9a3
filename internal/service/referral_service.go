package service

import (
	"context"
	"fmt"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferralService pays out a share of a completed top-up to the referrer.
type ReferralService struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	pub      EventPublisher
	users    *repository.UserRepository
	refs     *repository.ReferralRepository
	walletTx *repository.WalletTxRepository
	audits   *repository.AuditRepository
	settings *repository.SettingsRepository
}

func NewReferralService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *ReferralService {
	return &ReferralService{
		db:       db,
		cache:    c,
		pub:      pub,
		users:    repository.NewUserRepository(db),
		refs:     repository.NewReferralRepository(db),
		walletTx: repository.NewWalletTxRepository(db),
		audits:   repository.NewAuditRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
}

// pickLevel returns the highest tier whose achievement threshold is within
// total. Level 1 is the floor even when no threshold is met.
func pickLevel(levels []domain.ReferralLevel, total int64) domain.ReferralLevel {
	best := domain.ReferralLevel{Level: 1}
	for _, lv := range levels {
		if lv.AmountOfAchievement <= total && lv.Level >= best.Level {
			best = lv
		}
	}
	return best
}

// payoutAmount is floor(amount * percent / 100).
func payoutAmount(amount int64, percent int) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return amount * int64(percent) / 100
}

// levels returns the payout ladder through the cache; the key has no TTL and
// is invalidated explicitly when an admin edits the tiers.
func (s *ReferralService) levels(ctx context.Context) ([]domain.ReferralLevel, error) {
	return cache.GetList(ctx, s.cache, cache.ReferralLevelsKey, cache.TTLNone,
		func(ctx context.Context) ([]domain.ReferralLevel, error) {
			return s.refs.GetLevels(ctx)
		})
}

// HandleNewReferral credits the owner of the referred user. Idempotency: at
// most one income row per replenishment, checked first. A payout of zero
// writes nothing.
func (s *ReferralService) HandleNewReferral(ctx context.Context, p events.NewReferral) error {
	exists, err := s.refs.IncomeExists(ctx, p.ReplenishmentID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ref, err := s.refs.GetByReferredUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}

	levels, err := s.levels(ctx)
	if err != nil {
		return err
	}
	newLevel := pickLevel(levels, p.TotalSumReplenishment)
	income := payoutAmount(p.Amount, newLevel.Percent)
	if income == 0 {
		return nil
	}
	levelChanged := newLevel.Level > ref.Level

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	owner, err := s.users.GetForUpdateTx(ctx, tx, ref.OwnerID)
	if err != nil {
		return err
	}
	if owner == nil {
		logger.Warn("referral owner missing, dropping payout", "owner_id", ref.OwnerID)
		return nil
	}

	newBalance, err := s.users.UpdateBalanceTx(ctx, tx, owner.ID, income)
	if err != nil {
		return err
	}
	if err := s.users.AddReferralProfitTx(ctx, tx, owner.ID, income); err != nil {
		return err
	}
	if err := s.refs.UpdateLevelTx(ctx, tx, ref.ID, newLevel.Level); err != nil {
		return err
	}

	inc := &domain.IncomeFromReferral{
		ReplenishmentID: p.ReplenishmentID,
		OwnerID:         owner.ID,
		ReferredUserID:  p.UserID,
		Amount:          income,
		Percent:         newLevel.Percent,
	}
	if err := s.refs.CreateIncomeTx(ctx, tx, inc); err != nil {
		return err
	}

	wt := &domain.WalletTransaction{
		UserID:        owner.ID,
		Kind:          domain.WalletTxReferral,
		Amount:        income,
		BalanceBefore: newBalance - income,
		BalanceAfter:  newBalance,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
		return err
	}

	audit := &domain.AuditLog{
		UserID:   owner.ID,
		Action:   domain.AuditActionReferralIncome,
		Category: domain.AuditCategoryReferral,
		Details: map[string]interface{}{
			"replenishment_id": p.ReplenishmentID,
			"referred_user_id": p.UserID,
			"amount":           income,
			"percent":          newLevel.Percent,
			"level":            newLevel.Level,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	refreshUserCache(ctx, s.cache, s.users, owner.ID)

	ns, err := s.settings.GetNotificationSettings(ctx, owner.ID)
	if err == nil && ns.ReferralReplenishment {
		text := fmt.Sprintf("referral income %d credited to user %d from replenishment %d",
			income, owner.ID, p.ReplenishmentID)
		if levelChanged {
			text = fmt.Sprintf("%s (referral reached level %d)", text, newLevel.Level)
		}
		sendLog(ctx, s.pub, text, events.LogLvlInfo)
	}
	return nil
}
