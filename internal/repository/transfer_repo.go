package repository

import (
	"context"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransferRepository struct {
	db *pgxpool.Pool
}

func NewTransferRepository(db *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{db: db}
}

// CreateWithTx appends a transfer record within a transaction.
func (r *TransferRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, t *domain.TransferMoneys) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transfer_moneys (sender_id, recipient_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, t.SenderID, t.RecipientID, t.Amount).Scan(&t.ID, &t.CreatedAt)
}

// GetByUserID returns transfers where the user was sender or recipient.
func (r *TransferRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.TransferMoneys, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sender_id, recipient_id, amount, created_at
		FROM transfer_moneys
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.TransferMoneys
	for rows.Next() {
		var t domain.TransferMoneys
		if err := rows.Scan(&t.ID, &t.SenderID, &t.RecipientID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
