package repository

import (
	"context"
	"errors"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, tg_id, COALESCE(username, ''), language, referral_code,
       balance, total_sum_replenishment, total_profit_from_referrals, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.Language,
		&u.ReferralCode,
		&u.Balance,
		&u.TotalSumReplenishment,
		&u.TotalProfitReferrals,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user; returns (nil, nil) when absent.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByTgID retrieves a user by telegram id; returns (nil, nil) when absent.
func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByReferralCode retrieves the owner of a referral code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// Create inserts a new user with zero balances.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO users (tg_id, username, language, referral_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.TgID, u.Username, u.Language, u.ReferralCode).Scan(&u.ID, &u.CreatedAt)
}

// GetForUpdateTx loads a user row under FOR UPDATE inside tx.
func (r *UserRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.User, error) {
	u, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UpdateBalanceTx applies a signed delta and returns the new balance. The
// WHERE guard keeps balances non-negative; no row means insufficient funds
// (or a missing user, which callers rule out beforehand).
func (r *UserRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2 AND balance + $1 >= 0 RETURNING balance`,
		delta, id,
	).Scan(&newBalance)
	return newBalance, err
}

// AddReplenishmentTotalTx bumps the lifetime top-up total.
func (r *UserRepository) AddReplenishmentTotalTx(ctx context.Context, tx pgx.Tx, id int64, amount int64) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET total_sum_replenishment = total_sum_replenishment + $1 WHERE id = $2
		 RETURNING total_sum_replenishment`,
		amount, id,
	).Scan(&total)
	return total, err
}

// AddReferralProfitTx bumps the lifetime referral profit.
func (r *UserRepository) AddReferralProfitTx(ctx context.Context, tx pgx.Tx, id int64, amount int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE users SET total_profit_from_referrals = total_profit_from_referrals + $1 WHERE id = $2`,
		amount, id,
	)
	return err
}

// ReferralCodeExists checks code uniqueness during user bootstrap.
func (r *UserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code,
	).Scan(&exists)
	return exists, err
}
