package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Requires a migrated database; skipped otherwise.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping repository integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func createTestUser(t *testing.T, repo *UserRepository) *domain.User {
	t.Helper()
	n := time.Now().UnixNano()
	u := &domain.User{
		TgID:         n,
		Username:     "it_user",
		Language:     "en",
		ReferralCode: fmt.Sprintf("IT%d", n),
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUpdateBalanceTxGuard(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	u := createTestUser(t, repo)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	balance, err := repo.UpdateBalanceTx(ctx, tx, u.ID, 500)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 500 {
		t.Fatalf("balance = %d, want 500", balance)
	}

	balance, err = repo.UpdateBalanceTx(ctx, tx, u.ID, -200)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 300 {
		t.Fatalf("balance = %d, want 300", balance)
	}

	// overdraft matches no row
	if _, err := repo.UpdateBalanceTx(ctx, tx, u.ID, -301); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("overdraft err = %v, want pgx.ErrNoRows", err)
	}
}

func TestGetByIDAbsent(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)

	u, err := repo.GetByID(context.Background(), -1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil for absent user, got %+v", u)
	}
}

func TestMarkProcessingIdempotent(t *testing.T) {
	pool := newTestPool(t)
	users := NewUserRepository(pool)
	repl := NewReplenishmentRepository(pool)
	ctx := context.Background()
	u := createTestUser(t, users)

	rp := &domain.Replenishment{
		UserID:        u.ID,
		TypePaymentID: 1,
		OriginAmount:  100,
		Amount:        100,
		Status:        domain.ReplenishmentPending,
		ExternalID:    fmt.Sprintf("it-%d", time.Now().UnixNano()),
		ExpireAt:      time.Now().Add(time.Hour),
	}
	if err := repl.Create(ctx, rp); err != nil {
		t.Fatalf("create replenishment: %v", err)
	}

	got, err := repl.MarkProcessing(ctx, rp.ExternalID)
	if err != nil {
		t.Fatalf("first MarkProcessing: %v", err)
	}
	if got == nil || got.Status != domain.ReplenishmentProcessing {
		t.Fatalf("first MarkProcessing = %+v", got)
	}

	// replay finds no pending row
	got, err = repl.MarkProcessing(ctx, rp.ExternalID)
	if err != nil {
		t.Fatalf("second MarkProcessing: %v", err)
	}
	if got != nil {
		t.Fatalf("replay returned %+v, want nil", got)
	}
}
