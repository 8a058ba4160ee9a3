package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"shop_backoffice/internal/cache"
	"shop_backoffice/internal/domain"
	"shop_backoffice/internal/events"
	"shop_backoffice/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Requires a migrated database; skipped otherwise.
func newServiceTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping service integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// capturePublisher records published events; failNext makes the next publish
// fail once.
type capturePublisher struct {
	failNext bool
	events   []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	if p.failNext {
		p.failNext = false
		return errors.New("broker down")
	}
	p.events = append(p.events, e)
	return nil
}

func newServiceTestUser(t *testing.T, users *repository.UserRepository) *domain.User {
	t.Helper()
	n := time.Now().UnixNano()
	u := &domain.User{
		TgID:         n,
		Username:     "svc_user",
		Language:     "en",
		ReferralCode: fmt.Sprintf("SV%d", n),
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func creditUser(t *testing.T, pool *pgxpool.Pool, users *repository.UserRepository, userID, amount int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := users.UpdateBalanceTx(ctx, tx, userID, amount); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// A voucher that lost its last slot before the handler ran must not consume
// another one; the stray credit is reversed instead.
func TestHandleActivatedReversesCreditOnInvalidVoucher(t *testing.T) {
	pool := newServiceTestPool(t)
	ctx := context.Background()
	c := cache.New("", "", 0)
	pub := &capturePublisher{}
	svc := NewVoucherService(pool, c, pub)
	users := repository.NewUserRepository(pool)
	vouchers := repository.NewVoucherRepository(pool)

	creator := newServiceTestUser(t, users)
	first := newServiceTestUser(t, users)
	second := newServiceTestUser(t, users)

	one := 1
	v, err := svc.Create(ctx, creator.ID, 250, &one, nil, false)
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	// both users were credited before any event was processed
	creditUser(t, pool, users, second.ID, 250)

	// first activation takes the only slot and invalidates the voucher
	err = svc.HandleActivated(ctx, events.NewActivationVoucher{
		VoucherID: v.ID, UserID: first.ID, Amount: 250, BalanceBefore: 0, BalanceAfter: 250,
	})
	if err != nil {
		t.Fatalf("first HandleActivated: %v", err)
	}
	got, err := vouchers.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if got.IsValid || got.ActivatedCounter != 1 {
		t.Fatalf("after first activation: valid=%v counter=%d", got.IsValid, got.ActivatedCounter)
	}

	// second event arrives after the invalidation
	err = svc.HandleActivated(ctx, events.NewActivationVoucher{
		VoucherID: v.ID, UserID: second.ID, Amount: 250, BalanceBefore: 0, BalanceAfter: 250,
	})
	if err != nil {
		t.Fatalf("second HandleActivated: %v", err)
	}

	used, err := vouchers.ActivationExists(ctx, v.ID, second.ID)
	if err != nil {
		t.Fatalf("ActivationExists: %v", err)
	}
	if used {
		t.Fatal("activation row written against an invalid voucher")
	}
	got, err = vouchers.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if got.ActivatedCounter != 1 {
		t.Fatalf("counter = %d, want 1 (must never pass the limit)", got.ActivatedCounter)
	}

	u, err := users.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Balance != 0 {
		t.Fatalf("balance = %d, want 0 after reversal", u.Balance)
	}
	txs, err := repository.NewWalletTxRepository(pool).GetByUserID(ctx, second.ID, 10)
	if err != nil {
		t.Fatalf("wallet txs: %v", err)
	}
	if len(txs) != 1 || txs[0].Kind != domain.WalletTxRefund || txs[0].Amount != -250 {
		t.Fatalf("reversal wallet row = %+v", txs)
	}
}

// Same race on the promo side: an invalidated code drops the event without
// moving the counter.
func TestPromoHandleActivatedSkipsInvalidCode(t *testing.T) {
	pool := newServiceTestPool(t)
	ctx := context.Background()
	c := cache.New("", "", 0)
	pub := &capturePublisher{}
	svc := NewPromoCodeService(pool, c, pub)
	users := repository.NewUserRepository(pool)
	promos := repository.NewPromoCodeRepository(pool)

	first := newServiceTestUser(t, users)
	second := newServiceTestUser(t, users)

	amount := int64(50)
	p := &domain.PromoCode{
		Code:                fmt.Sprintf("PSKIP%d", time.Now().UnixNano()),
		Amount:              &amount,
		NumberOfActivations: 1,
	}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("create promo: %v", err)
	}

	err := svc.HandleActivated(ctx, events.NewActivatePromoCode{PromoCodeID: p.ID, UserID: first.ID})
	if err != nil {
		t.Fatalf("first HandleActivated: %v", err)
	}
	err = svc.HandleActivated(ctx, events.NewActivatePromoCode{PromoCodeID: p.ID, UserID: second.ID})
	if err != nil {
		t.Fatalf("second HandleActivated: %v", err)
	}

	used, err := promos.ActivationExists(ctx, p.ID, second.ID)
	if err != nil {
		t.Fatalf("ActivationExists: %v", err)
	}
	if used {
		t.Fatal("activation row written against an invalid promo code")
	}
	got, err := promos.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get promo: %v", err)
	}
	if got.ActivatedCounter != 1 || got.IsValid {
		t.Fatalf("after both events: valid=%v counter=%d, want invalid / 1", got.IsValid, got.ActivatedCounter)
	}
}
