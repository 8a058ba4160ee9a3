package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// One retry with a short pause against transient lock contention; the broker
// is not a retry queue.
const (
	purchaseRetries      = 1
	purchaseRetryBackoff = 80 * time.Millisecond
)

// PurchaseService does the bookkeeping for finished purchases. The
// authoritative stock move already happened in the purchase action; this
// handler appends the wallet row, per-item audit rows and per-item reports.
type PurchaseService struct {
	db       *pgxpool.Pool
	cache    *cache.Cache
	pub      EventPublisher
	walletTx *repository.WalletTxRepository
	audits   *repository.AuditRepository
}

func NewPurchaseService(db *pgxpool.Pool, c *cache.Cache, pub EventPublisher) *PurchaseService {
	return &PurchaseService{
		db:       db,
		cache:    c,
		pub:      pub,
		walletTx: repository.NewWalletTxRepository(db),
		audits:   repository.NewAuditRepository(db),
	}
}

// isConcurrencyConflict matches serialization failures and deadlocks.
func isConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// HandlePurchaseAccount books an account purchase.
func (s *PurchaseService) HandlePurchaseAccount(ctx context.Context, p events.NewPurchaseAccount) error {
	return s.book(ctx, bookParams{
		userID:        p.UserID,
		categoryID:    p.CategoryID,
		amount:        p.AmountPurchase,
		balanceBefore: p.UserBalanceBefore,
		balanceAfter:  p.UserBalanceAfter,
		movements:     p.AccountMovement,
		productLeft:   p.ProductLeft,
		auditAction:   domain.AuditActionPurchaseAccount,
	})
}

// HandlePurchaseUniversal books a universal-product purchase.
func (s *PurchaseService) HandlePurchaseUniversal(ctx context.Context, p events.NewPurchaseUniversal) error {
	return s.book(ctx, bookParams{
		userID:        p.UserID,
		categoryID:    p.CategoryID,
		amount:        p.AmountPurchase,
		balanceBefore: p.UserBalanceBefore,
		balanceAfter:  p.UserBalanceAfter,
		movements:     p.ProductMovement,
		productLeft:   p.ProductLeft,
		auditAction:   domain.AuditActionPurchaseUniversal,
	})
}

type bookParams struct {
	userID        int64
	categoryID    int64
	amount        int64
	balanceBefore int64
	balanceAfter  int64
	movements     []events.Movement
	productLeft   int64
	auditAction   string
}

func (s *PurchaseService) book(ctx context.Context, p bookParams) error {
	var err error
	for attempt := 0; attempt <= purchaseRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(purchaseRetryBackoff)
		}
		err = s.bookOnce(ctx, p)
		if err == nil || !isConcurrencyConflict(err) {
			break
		}
	}
	if err != nil {
		return err
	}

	// The purchase action already moved the stock; the owner-scoped and
	// per-account sold lists are language fan-out keys.
	s.cache.InvalidatePrefix(ctx, cache.SoldAccountsByOwnerPrefix(p.userID))
	s.cache.Invalidate(ctx, cache.ProductAccountsByCategoryKey(p.categoryID))

	for _, m := range p.movements {
		sendLog(ctx, s.pub,
			fmt.Sprintf("purchase %d: item %d sold to user %d for %d (profit %d), %d left",
				m.PurchaseID, m.StorageID, p.userID, m.Price, m.Profit, p.productLeft),
			events.LogLvlInfo)
	}
	return nil
}

func (s *PurchaseService) bookOnce(ctx context.Context, p bookParams) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	wt := &domain.WalletTransaction{
		UserID:        p.userID,
		Kind:          domain.WalletTxPurchase,
		Amount:        -p.amount,
		BalanceBefore: p.balanceBefore,
		BalanceAfter:  p.balanceAfter,
	}
	if err := s.walletTx.CreateWithTx(ctx, tx, wt); err != nil {
		return err
	}

	for _, m := range p.movements {
		audit := &domain.AuditLog{
			UserID:   p.userID,
			Action:   p.auditAction,
			Category: domain.AuditCategoryPurchase,
			Details: map[string]interface{}{
				"purchase_id": m.PurchaseID,
				"storage_id":  m.StorageID,
				"sold_id":     m.SoldID,
				"category_id": p.categoryID,
				"cost":        m.Cost,
				"price":       m.Price,
				"profit":      m.Profit,
			},
		}
		if err := s.audits.CreateWithTx(ctx, tx, audit); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
