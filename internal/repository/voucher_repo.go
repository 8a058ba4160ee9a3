package repository

import (
	"context"
	"errors"
	"time"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const voucherColumns = `id, creator_id, code, amount, activated_counter,
       number_of_activations, start_at, expire_at, is_valid, is_created_admin, created_at`

type VoucherRepository struct {
	db *pgxpool.Pool
}

func NewVoucherRepository(db *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{db: db}
}

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var v domain.Voucher
	if err := row.Scan(
		&v.ID,
		&v.CreatorID,
		&v.Code,
		&v.Amount,
		&v.ActivatedCounter,
		&v.NumberOfActivations,
		&v.StartAt,
		&v.ExpireAt,
		&v.IsValid,
		&v.IsCreatedAdmin,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create inserts a voucher.
func (r *VoucherRepository) Create(ctx context.Context, v *domain.Voucher) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO vouchers (creator_id, code, amount, number_of_activations, start_at, expire_at, is_valid, is_created_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, v.CreatorID, v.Code, v.Amount, v.NumberOfActivations, v.StartAt, v.ExpireAt, v.IsValid, v.IsCreatedAdmin,
	).Scan(&v.ID, &v.CreatedAt)
}

// GetValidByCode retrieves a valid voucher by activation code. Codes are only
// unique among valid vouchers, so invalid ones are excluded here.
func (r *VoucherRepository) GetValidByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(r.db.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE code = $1 AND is_valid = true`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// GetByID retrieves a voucher; returns (nil, nil) when absent.
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*domain.Voucher, error) {
	v, err := scanVoucher(r.db.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// GetForUpdateTx loads a voucher under FOR UPDATE inside tx.
func (r *VoucherRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Voucher, error) {
	v, err := scanVoucher(tx.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

// GetByCreator returns all vouchers created by a user.
func (r *VoucherRepository) GetByCreator(ctx context.Context, creatorID int64) ([]domain.Voucher, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *v)
	}
	return res, rows.Err()
}

// IncrementActivatedTx bumps the counter and returns its new value.
func (r *VoucherRepository) IncrementActivatedTx(ctx context.Context, tx pgx.Tx, id int64) (int, error) {
	var counter int
	err := tx.QueryRow(ctx,
		`UPDATE vouchers SET activated_counter = activated_counter + 1 WHERE id = $1
		 RETURNING activated_counter`,
		id,
	).Scan(&counter)
	return counter, err
}

// InvalidateTx flips is_valid off. The flag is terminal.
func (r *VoucherRepository) InvalidateTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `UPDATE vouchers SET is_valid = false WHERE id = $1`, id)
	return err
}

// ActivationExists checks the (voucher, user) idempotency key.
func (r *VoucherRepository) ActivationExists(ctx context.Context, voucherID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM voucher_activations WHERE voucher_id = $1 AND user_id = $2)`,
		voucherID, userID,
	).Scan(&exists)
	return exists, err
}

// CreateActivationTx records a single use within a transaction. The unique
// (voucher_id, user_id) constraint turns races into constraint errors.
func (r *VoucherRepository) CreateActivationTx(ctx context.Context, tx pgx.Tx, a *domain.VoucherActivation) error {
	return tx.QueryRow(ctx, `
		INSERT INTO voucher_activations (voucher_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, a.VoucherID, a.UserID).Scan(&a.ID, &a.CreatedAt)
}

// GetExpired returns still-valid vouchers past their expiry.
func (r *VoucherRepository) GetExpired(ctx context.Context, now time.Time) ([]domain.Voucher, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE is_valid = true AND expire_at IS NOT NULL AND expire_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *v)
	}
	return res, rows.Err()
}

// ValidCodeExists checks activation-code uniqueness among valid vouchers.
func (r *VoucherRepository) ValidCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vouchers WHERE code = $1 AND is_valid = true)`, code,
	).Scan(&exists)
	return exists, err
}
