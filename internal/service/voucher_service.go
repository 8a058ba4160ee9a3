package service

import (
	"context"
	"errors"
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

// VoucherService owns the voucher lifecycle: creation, synchronous
// activation, the post-activation handler, and deactivation with refund.
type VoucherService struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	pub      EventPublisher
	users    *repository.UserRepository
	vouchers *repository.VoucherRepository
	walletTx *repository.WalletTxRepository
	audits   *repository.AuditRepository
}

func NewVoucherService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *VoucherService {
	return &VoucherService{
		db:       db,
		cache:    c,
		pub:      pub,
		users:    repository.NewUserRepository(db),
		vouchers: repository.NewVoucherRepository(db),
		walletTx: repository.NewWalletTxRepository(db),
		audits:   repository.NewAuditRepository(db),
	}
}

// Create issues a voucher with a generated code, unique among valid vouchers.
func (s *VoucherService) Create(ctx context.Context, creatorID, amount int64, numberOfActivations *int, expireAt *time.Time, isAdmin bool) (*domain.Voucher, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if numberOfActivations != nil && *numberOfActivations <= 0 {
		return nil, ErrInvalidAmount
	}

	var code string
	for attempt := 0; attempt < 5; attempt++ {
		c, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.vouchers.ValidCodeExists(ctx, c)
		if err != nil {
			return nil, err
		}
		if !exists {
			code = c
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("could not generate unique voucher code")
	}

	v := &domain.Voucher{
		CreatorID:           creatorID,
		Code:                code,
		Amount:              amount,
		NumberOfActivations: numberOfActivations,
		StartAt:             time.Now(),
		ExpireAt:            expireAt,
		IsValid:             true,
		IsCreatedAdmin:      isAdmin,
	}
	if err := s.vouchers.Create(ctx, v); err != nil {
		return nil, err
	}

	cache.Refresh(ctx, s.cache, cache.VoucherKey(code), v, cache.ExpiryTTL(expireAt, time.Now()))
	s.cache.Invalidate(ctx, cache.VoucherByUserKey(creatorID))
	return v, nil
}

// getCachedByCode is the read-through voucher fetch keyed by activation code.
// The write-back lives no longer than the voucher itself.
func (s *VoucherService) getCachedByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	return cache.GetOneTTL(ctx, s.cache, cache.VoucherKey(code),
		func(ctx context.Context) (*domain.Voucher, error) {
			return s.vouchers.GetValidByCode(ctx, code)
		},
		func(v *domain.Voucher) time.Duration {
			return cache.ExpiryTTL(v.ExpireAt, time.Now())
		})
}

// ByCreator lists a user's vouchers through the cache.
func (s *VoucherService) ByCreator(ctx context.Context, creatorID int64) ([]domain.Voucher, error) {
	return cache.GetList(ctx, s.cache, cache.VoucherByUserKey(creatorID), cache.TTLSoldAccountsList,
		func(ctx context.Context) ([]domain.Voucher, error) {
			return s.vouchers.GetByCreator(ctx, creatorID)
		})
}

// Activate is the synchronous activation action: validate, credit the
// activator, emit voucher.activated. The counter/limit bookkeeping happens in
// HandleActivated. An expired voucher is deactivated (refunding the creator)
// before the activator gets the expired error.
func (s *VoucherService) Activate(ctx context.Context, userID int64, code, language string) (int64, error) {
	v, err := s.getCachedByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if v == nil || !v.IsValid {
		return 0, ErrVoucherNotFound
	}
	if v.CreatorID == userID {
		return 0, ErrOwnVoucher
	}

	used, err := s.vouchers.ActivationExists(ctx, v.ID, userID)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, ErrAlreadyActivated
	}

	if v.Expired(time.Now()) {
		if err := s.Deactivate(ctx, v.ID); err != nil {
			logger.Error("deactivate of expired voucher failed", "voucher_id", v.ID, "error", err)
		}
		return 0, ErrVoucherExpired
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Re-check under the voucher row lock: the cached copy may predate a
	// limit invalidation or a sweeper deactivation. Voucher first, user
	// second, same order as the other voucher transactions.
	locked, err := s.vouchers.GetForUpdateTx(ctx, tx, v.ID)
	if err != nil {
		return 0, err
	}
	if locked == nil || !locked.IsValid {
		return 0, ErrVoucherNotFound
	}
	if locked.Expired(time.Now()) {
		// release the row lock before deactivating
		_ = tx.Rollback(ctx)
		if err := s.Deactivate(ctx, locked.ID); err != nil {
			logger.Error("deactivate of expired voucher failed", "voucher_id", locked.ID, "error", err)
		}
		return 0, ErrVoucherExpired
	}

	u, err := s.users.GetForUpdateTx(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, ErrUserNotFound
	}

	newBalance, err := s.users.UpdateBalanceTx(ctx, tx, userID, locked.Amount)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	refreshUserCache(ctx, s.cache, s.users, userID)

	err = s.pub.Publish(ctx, events.NewActivationVoucher{
		VoucherID:     locked.ID,
		UserID:        userID,
		Language:      language,
		Amount:        locked.Amount,
		BalanceBefore: newBalance - locked.Amount,
		BalanceAfter:  newBalance,
	})
	if err != nil {
		logger.Error("voucher.activated publish failed", "voucher_id", v.ID, "error", err)
	}
	return newBalance, nil
}

// HandleActivated records one activation: activation row, counter increment,
// limit handling, wallet and audit rows. Idempotency: the unique
// (voucher_id, user_id) activation row, checked first.
func (s *VoucherService) HandleActivated(ctx context.Context, p events.NewActivationVoucher) error {
	exists, err := s.vouchers.ActivationExists(ctx, p.VoucherID, p.UserID)
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

	v, err := s.vouchers.GetForUpdateTx(ctx, tx, p.VoucherID)
	if err != nil {
		return err
	}
	if v == nil {
		logger.Warn("voucher missing, dropping activation", "voucher_id", p.VoucherID)
		return nil
	}
	if !v.IsValid {
		// The voucher lost its last slot between the credit and this event
		// (limit race, or the sweeper deactivated and refunded the creator).
		// Never push the counter past the limit; claw the credit back.
		return s.reverseCredit(ctx, tx, v, p)
	}

	activation := &domain.VoucherActivation{VoucherID: v.ID, UserID: p.UserID}
	if err := s.vouchers.CreateActivationTx(ctx, tx, activation); err != nil {
		return err
	}

	counter, err := s.vouchers.IncrementActivatedTx(ctx, tx, v.ID)
	if err != nil {
		return err
	}
	limitReached := v.NumberOfActivations != nil && counter >= *v.NumberOfActivations
	if limitReached {
		if err := s.vouchers.InvalidateTx(ctx, tx, v.ID); err != nil {
			return err
		}
	}

	wt := &domain.WalletTransaction{
		UserID:        p.UserID,
		Kind:          domain.WalletTxVoucher,
		Amount:        p.Amount,
		BalanceBefore: p.BalanceBefore,
		BalanceAfter:  p.BalanceAfter,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
		return err
	}

	audit := &domain.AuditLog{
		UserID:   p.UserID,
		Action:   domain.AuditActionVoucherActivated,
		Category: domain.AuditCategoryVoucher,
		Details: map[string]interface{}{
			"voucher_id": v.ID,
			"amount":     p.Amount,
			"counter":    counter,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if limitReached {
		s.cache.Invalidate(ctx, cache.VoucherKey(v.Code))
		if v.IsCreatedAdmin {
			sendLog(ctx, s.pub,
				fmt.Sprintf("admin voucher %d reached its activation limit", v.ID),
				events.LogLvlInfo)
		} else {
			sendLog(ctx, s.pub,
				fmt.Sprintf("voucher %d of user %d reached its activation limit", v.ID, v.CreatorID),
				events.LogLvlInfo)
		}
	}
	s.cache.Invalidate(ctx, cache.VoucherByUserKey(v.CreatorID))

	if !v.IsCreatedAdmin {
		sendLog(ctx, s.pub,
			fmt.Sprintf("voucher %d of user %d activated by user %d", v.ID, v.CreatorID, p.UserID),
			events.LogLvlInfo)
	}
	return nil
}

// reverseCredit undoes an activation credit whose voucher slot no longer
// exists. Runs inside the handler transaction that holds the voucher lock;
// the activation row is never written and the counter never moves.
func (s *VoucherService) reverseCredit(ctx context.Context, tx pgx.Tx, v *domain.Voucher, p events.NewActivationVoucher) error {
	u, err := s.users.GetForUpdateTx(ctx, tx, p.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		logger.Warn("voucher credit reversal: user missing", "voucher_id", v.ID, "user_id", p.UserID)
		return nil
	}

	newBalance, err := s.users.UpdateBalanceTx(ctx, tx, p.UserID, -p.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// already spent; leave a loud trace instead of wedging the queue
			sendLog(ctx, s.pub,
				fmt.Sprintf("voucher %d: cannot reverse credit %d for user %d, balance too low", v.ID, p.Amount, p.UserID),
				events.LogLvlError)
			return nil
		}
		return err
	}

	wt := &domain.WalletTransaction{
		UserID:        p.UserID,
		Kind:          domain.WalletTxRefund,
		Amount:        -p.Amount,
		BalanceBefore: newBalance + p.Amount,
		BalanceAfter:  newBalance,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
		return err
	}

	audit := &domain.AuditLog{
		UserID:   p.UserID,
		Action:   domain.AuditActionVoucherReversed,
		Category: domain.AuditCategoryVoucher,
		Details: map[string]interface{}{
			"voucher_id": v.ID,
			"amount":     p.Amount,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	refreshUserCache(ctx, s.cache, s.users, p.UserID)
	sendLog(ctx, s.pub,
		fmt.Sprintf("voucher %d no longer valid, credit %d reversed for user %d", v.ID, p.Amount, p.UserID),
		events.LogLvlWarning)
	return nil
}

// Deactivate invalidates a voucher and refunds the unused activations to its
// creator. Used by the sweeper and by activation of an expired voucher.
func (s *VoucherService) Deactivate(ctx context.Context, voucherID int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	v, err := s.vouchers.GetForUpdateTx(ctx, tx, voucherID)
	if err != nil {
		return err
	}
	if v == nil || !v.IsValid {
		return nil
	}

	if err := s.vouchers.InvalidateTx(ctx, tx, v.ID); err != nil {
		return err
	}

	refund := v.Amount * int64(v.UnusedActivations())
	if refund > 0 {
		creator, err := s.users.GetForUpdateTx(ctx, tx, v.CreatorID)
		if err != nil {
			return err
		}
		if creator != nil {
			newBalance, err := s.users.UpdateBalanceTx(ctx, tx, creator.ID, refund)
			if err != nil {
				return err
			}
			wt := &domain.WalletTransaction{
				UserID:        creator.ID,
				Kind:          domain.WalletTxRefund,
				Amount:        refund,
				BalanceBefore: newBalance - refund,
				BalanceAfter:  newBalance,
			}
			if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
				return err
			}
			refundAudit := &domain.AuditLog{
				UserID:   creator.ID,
				Action:   domain.AuditActionVoucherRefund,
				Category: domain.AuditCategoryVoucher,
				Details: map[string]interface{}{
					"voucher_id": v.ID,
					"refund":     refund,
				},
			}
			if err := s.audits.CreateWithTx(ctx, tx, refundAudit); err != nil {
				return err
			}
		}
	}

	audit := &domain.AuditLog{
		UserID:   v.CreatorID,
		Action:   domain.AuditActionVoucherDeactivated,
		Category: domain.AuditCategoryVoucher,
		Details:  map[string]interface{}{"voucher_id": v.ID},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.VoucherKey(v.Code), cache.VoucherByUserKey(v.CreatorID))
	if refund > 0 {
		refreshUserCache(ctx, s.cache, s.users, v.CreatorID)
	}
	if !v.IsCreatedAdmin {
		sendLog(ctx, s.pub,
			fmt.Sprintf("voucher %d deactivated, %d refunded to user %d", v.ID, refund, v.CreatorID),
			events.LogLvlInfo)
	}
	return nil
}
