package repository

import (
	"context"
	"errors"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// GetByReferredUser returns the referral row owning userID, or (nil, nil)
// when the user was not referred by anyone.
func (r *ReferralRepository) GetByReferredUser(ctx context.Context, userID int64) (*domain.Referral, error) {
	var ref domain.Referral
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, referred_user_id, level, created_at
		FROM referrals
		WHERE referred_user_id = $1
	`, userID).Scan(&ref.ID, &ref.OwnerID, &ref.ReferredUserID, &ref.Level, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Create attaches a referred user to an owner at level 1. The unique
// constraint on referred_user_id enforces one owner per user.
func (r *ReferralRepository) Create(ctx context.Context, ref *domain.Referral) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO referrals (owner_id, referred_user_id, level)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, ref.OwnerID, ref.ReferredUserID, ref.Level).Scan(&ref.ID, &ref.CreatedAt)
}

// UpdateLevelTx raises the referral level. The guard keeps it monotonic.
func (r *ReferralRepository) UpdateLevelTx(ctx context.Context, tx pgx.Tx, id int64, level int) error {
	_, err := tx.Exec(ctx,
		`UPDATE referrals SET level = $2 WHERE id = $1 AND level < $2`,
		id, level,
	)
	return err
}

// GetLevels returns the payout ladder ordered by level.
func (r *ReferralRepository) GetLevels(ctx context.Context) ([]domain.ReferralLevel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT level, amount_of_achievement, percent
		FROM referral_levels
		ORDER BY level ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []domain.ReferralLevel
	for rows.Next() {
		var lv domain.ReferralLevel
		if err := rows.Scan(&lv.Level, &lv.AmountOfAchievement, &lv.Percent); err != nil {
			return nil, err
		}
		levels = append(levels, lv)
	}
	return levels, rows.Err()
}

// IncomeExists checks the payout idempotency key: at most one income row per
// replenishment.
func (r *ReferralRepository) IncomeExists(ctx context.Context, replenishmentID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM income_from_referrals WHERE replenishment_id = $1)`,
		replenishmentID,
	).Scan(&exists)
	return exists, err
}

// CreateIncomeTx appends a payout record within a transaction.
func (r *ReferralRepository) CreateIncomeTx(ctx context.Context, tx pgx.Tx, inc *domain.IncomeFromReferral) error {
	return tx.QueryRow(ctx, `
		INSERT INTO income_from_referrals (replenishment_id, owner_id, referred_user_id, amount, percent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, inc.ReplenishmentID, inc.OwnerID, inc.ReferredUserID, inc.Amount, inc.Percent,
	).Scan(&inc.ID, &inc.CreatedAt)
}
