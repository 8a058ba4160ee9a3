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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pending payments expire after an hour; the sweeper cancels the leftovers.
const paymentTTL = time.Hour

// ReplenishmentService owns the top-up lifecycle: payment creation, the
// webhook transition to processing, and the completion handler.
type ReplenishmentService struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	pub      EventPublisher
	users    *repository.UserRepository
	repl     *repository.ReplenishmentRepository
	walletTx *repository.WalletTxRepository
	audits   *repository.AuditRepository
}

func NewReplenishmentService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *ReplenishmentService {
	return &ReplenishmentService{
		db:       db,
		cache:    c,
		pub:      pub,
		users:    repository.NewUserRepository(db),
		repl:     repository.NewReplenishmentRepository(db),
		walletTx: repository.NewWalletTxRepository(db),
		audits:   repository.NewAuditRepository(db),
	}
}

// CreatePayment opens a pending replenishment with an opaque external
// reference the payment provider will echo back in the webhook.
func (s *ReplenishmentService) CreatePayment(ctx context.Context, userID, typePaymentID, originAmount, amount int64) (*domain.Replenishment, error) {
	if amount <= 0 || originAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	rp := &domain.Replenishment{
		UserID:        userID,
		TypePaymentID: typePaymentID,
		OriginAmount:  originAmount,
		Amount:        amount,
		Status:        domain.ReplenishmentPending,
		ExternalID:    uuid.NewString(),
		ExpireAt:      time.Now().Add(paymentTTL),
	}
	if err := s.repl.Create(ctx, rp); err != nil {
		return nil, err
	}
	return rp, nil
}

// ConfirmPayment is the webhook transition: pending -> processing by external
// reference, then a replenishment.new_replenishment event. A replay that
// finds the row still processing re-emits the event, so a publish failure on
// the first delivery cannot strand the replenishment; the completion handler
// is idempotent. Replays of finished rows return (nil, nil).
func (s *ReplenishmentService) ConfirmPayment(ctx context.Context, externalID string) (*domain.Replenishment, error) {
	rp, err := s.repl.MarkProcessing(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if rp == nil {
		rp, err = s.repl.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if rp == nil || rp.Status != domain.ReplenishmentProcessing {
			return nil, nil
		}
	}

	err = s.pub.Publish(ctx, events.NewReplenishment{
		ReplenishmentID: rp.ID,
		UserID:          rp.UserID,
		OriginAmount:    rp.OriginAmount,
		Amount:          rp.Amount,
	})
	if err != nil {
		// The row is already processing; the completion handler will not run
		// until this event goes out, so surface the failure loudly.
		logger.Error("new_replenishment publish failed", "replenishment_id", rp.ID, "error", err)
		return rp, err
	}
	return rp, nil
}

// HandleNewReplenishment completes a processing replenishment: credit the
// balance, bump the lifetime total, flip the status, append wallet and audit
// rows — one transaction. Deferred events go out only after commit.
// Idempotency: the processing status guard; any other status is a no-op.
func (s *ReplenishmentService) HandleNewReplenishment(ctx context.Context, p events.NewReplenishment) error {
	rp, err := s.repl.GetByID(ctx, p.ReplenishmentID)
	if err != nil {
		return err
	}
	if rp == nil {
		logger.Warn("replenishment not found, dropping", "replenishment_id", p.ReplenishmentID)
		return nil
	}
	if rp.Status != domain.ReplenishmentProcessing {
		// Double delivery or a replayed webhook: the effect is already applied.
		logger.Info("replenishment not in processing, skipping",
			"replenishment_id", rp.ID, "status", rp.Status)
		return nil
	}

	u, err := s.users.GetByID(ctx, rp.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		logger.Warn("replenishment user missing, dropping", "user_id", rp.UserID)
		return nil
	}

	outbox := events.NewOutbox()
	if err := s.applyCompletion(ctx, rp, u, p.Amount, outbox); err != nil {
		// Nothing was credited; record the failure and report it.
		outbox.Discard()
		if serr := s.repl.SetStatus(ctx, rp.ID, domain.ReplenishmentError); serr != nil {
			logger.Error("failed to mark replenishment error", "replenishment_id", rp.ID, "error", serr)
		}
		failed := events.ReplenishmentFailed{
			UserID:          u.ID,
			ReplenishmentID: rp.ID,
			Error:           true,
			ErrorStr:        err.Error(),
			Language:        u.Language,
			Username:        u.Username,
		}
		if perr := s.pub.Publish(ctx, failed); perr != nil {
			logger.Error("replenishment.failed publish failed", "replenishment_id", rp.ID, "error", perr)
		}
		sendLog(ctx, s.pub,
			fmt.Sprintf("replenishment %d for user %d failed: %v", rp.ID, u.ID, err),
			events.LogLvlError)
		return nil
	}

	refreshUserCache(ctx, s.cache, s.users, u.ID)
	publishAll(ctx, s.pub, outbox.Drain())
	return nil
}

func (s *ReplenishmentService) applyCompletion(ctx context.Context, rp *domain.Replenishment, u *domain.User, amount int64, outbox *events.Outbox) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := s.users.GetForUpdateTx(ctx, tx, u.ID)
	if err != nil {
		return err
	}
	if locked == nil {
		return ErrUserNotFound
	}

	newBalance, err := s.users.UpdateBalanceTx(ctx, tx, u.ID, amount)
	if err != nil {
		return err
	}
	total, err := s.users.AddReplenishmentTotalTx(ctx, tx, u.ID, amount)
	if err != nil {
		return err
	}
	if err := s.repl.SetStatusTx(ctx, tx, rp.ID, domain.ReplenishmentCompleted); err != nil {
		return err
	}

	wt := &domain.WalletTransaction{
		UserID:        u.ID,
		Kind:          domain.WalletTxReplenish,
		Amount:        amount,
		BalanceBefore: newBalance - amount,
		BalanceAfter:  newBalance,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
		return err
	}

	audit := &domain.AuditLog{
		UserID:   u.ID,
		Action:   domain.AuditActionReplenishmentCompleted,
		Category: domain.AuditCategoryPayment,
		Details: map[string]interface{}{
			"replenishment_id": rp.ID,
			"amount":           amount,
			"origin_amount":    rp.OriginAmount,
		},
	}
	if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
		return err
	}

	completed := events.ReplenishmentCompleted{
		UserID:                u.ID,
		ReplenishmentID:       rp.ID,
		Amount:                amount,
		TotalSumReplenishment: total,
		Language:              u.Language,
		Username:              u.Username,
	}
	outbox.Add(completed)
	outbox.Add(events.NewReferral(completed))
	outbox.Add(events.SendLog{
		Text:   fmt.Sprintf("replenishment %d completed: user %d credited %d", rp.ID, u.ID, amount),
		LogLvl: events.LogLvlInfo,
	})

	return tx.Commit(ctx)
}
