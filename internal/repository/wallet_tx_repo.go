package repository

import (
	"context"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletTxRepository struct {
	db *pgxpool.Pool
}

func NewWalletTxRepository(db *pgxpool.Pool) *WalletTxRepository {
	return &WalletTxRepository{db: db}
}

// Create appends a wallet transaction row.
func (r *WalletTxRepository) Create(ctx context.Context, wt *domain.WalletTransaction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO wallet_transactions (user_id, kind, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, wt.UserID, wt.Kind, wt.Amount, wt.BalanceBefore, wt.BalanceAfter).Scan(&wt.ID, &wt.CreatedAt)
}

// CreateWithTx appends a wallet transaction row within a transaction.
func (r *WalletTxRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, wt *domain.WalletTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (user_id, kind, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, wt.UserID, wt.Kind, wt.Amount, wt.BalanceBefore, wt.BalanceAfter).Scan(&wt.ID, &wt.CreatedAt)
}

// GetByUserID returns the most recent wallet transactions for a user.
func (r *WalletTxRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.WalletTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, amount, balance_before, balance_after, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.WalletTransaction
	for rows.Next() {
		var wt domain.WalletTransaction
		if err := rows.Scan(&wt.ID, &wt.UserID, &wt.Kind, &wt.Amount, &wt.BalanceBefore, &wt.BalanceAfter, &wt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, wt)
	}
	return res, rows.Err()
}
