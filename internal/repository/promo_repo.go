package repository

import (
	"context"
	"errors"
	"time"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const promoColumns = `id, code, min_order_amount, amount, discount_percentage,
       activated_counter, number_of_activations, expire_at, is_valid, created_at`

type PromoCodeRepository struct {
	db *pgxpool.Pool
}

func NewPromoCodeRepository(db *pgxpool.Pool) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

func scanPromoCode(row pgx.Row) (*domain.PromoCode, error) {
	var p domain.PromoCode
	if err := row.Scan(
		&p.ID,
		&p.Code,
		&p.MinOrderAmount,
		&p.Amount,
		&p.DiscountPercentage,
		&p.ActivatedCounter,
		&p.NumberOfActivations,
		&p.ExpireAt,
		&p.IsValid,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a promo code.
func (r *PromoCodeRepository) Create(ctx context.Context, p *domain.PromoCode) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO promo_codes (code, min_order_amount, amount, discount_percentage, number_of_activations, expire_at, is_valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, p.Code, p.MinOrderAmount, p.Amount, p.DiscountPercentage, p.NumberOfActivations, p.ExpireAt, p.IsValid,
	).Scan(&p.ID, &p.CreatedAt)
}

// GetValidByCode retrieves a valid promo code.
func (r *PromoCodeRepository) GetValidByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	p, err := scanPromoCode(r.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1 AND is_valid = true`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetByID retrieves a promo code; returns (nil, nil) when absent.
func (r *PromoCodeRepository) GetByID(ctx context.Context, id int64) (*domain.PromoCode, error) {
	p, err := scanPromoCode(r.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetForUpdateTx loads a promo code under FOR UPDATE inside tx.
func (r *PromoCodeRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.PromoCode, error) {
	p, err := scanPromoCode(tx.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// IncrementActivatedTx bumps the counter and returns its new value.
func (r *PromoCodeRepository) IncrementActivatedTx(ctx context.Context, tx pgx.Tx, id int64) (int, error) {
	var counter int
	err := tx.QueryRow(ctx,
		`UPDATE promo_codes SET activated_counter = activated_counter + 1 WHERE id = $1
		 RETURNING activated_counter`,
		id,
	).Scan(&counter)
	return counter, err
}

// InvalidateTx flips is_valid off. The flag is terminal.
func (r *PromoCodeRepository) InvalidateTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE promo_codes SET is_valid = false WHERE id = $1`, id)
	return err
}

// Invalidate flips is_valid off outside any transaction (sweeper path).
func (r *PromoCodeRepository) Invalidate(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE promo_codes SET is_valid = false WHERE id = $1`, id)
	return err
}

// ActivationExists checks the (promo, user) idempotency key.
func (r *PromoCodeRepository) ActivationExists(ctx context.Context, promoCodeID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM activated_promo_codes WHERE promo_code_id = $1 AND user_id = $2)`,
		promoCodeID, userID,
	).Scan(&exists)
	return exists, err
}

// CreateActivationTx records a single use within a transaction.
func (r *PromoCodeRepository) CreateActivationTx(ctx context.Context, tx pgx.Tx, a *domain.ActivatedPromoCode) error {
	return tx.QueryRow(ctx, `
		INSERT INTO activated_promo_codes (promo_code_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, a.PromoCodeID, a.UserID).Scan(&a.ID, &a.CreatedAt)
}

// GetExpired returns still-valid promo codes past their expiry.
func (r *PromoCodeRepository) GetExpired(ctx context.Context, now time.Time) ([]domain.PromoCode, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE is_valid = true AND expire_at IS NOT NULL AND expire_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.PromoCode
	for rows.Next() {
		p, err := scanPromoCode(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

// ValidCodeExists checks code uniqueness among valid promo codes.
func (r *PromoCodeRepository) ValidCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM promo_codes WHERE code = $1 AND is_valid = true)`, code,
	).Scan(&exists)
	return exists, err
}
