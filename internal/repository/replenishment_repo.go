package repository

import (
	"context"
	"errors"
	"time"

	"shop_backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const replenishmentColumns = `id, user_id, type_payment_id, origin_amount, amount,
       status, external_id, expire_at, created_at`

type ReplenishmentRepository struct {
	db *pgxpool.Pool
}

func NewReplenishmentRepository(db *pgxpool.Pool) *ReplenishmentRepository {
	return &ReplenishmentRepository{db: db}
}

func scanReplenishment(row pgx.Row) (*domain.Replenishment, error) {
	var rp domain.Replenishment
	if err := row.Scan(
		&rp.ID,
		&rp.UserID,
		&rp.TypePaymentID,
		&rp.OriginAmount,
		&rp.Amount,
		&rp.Status,
		&rp.ExternalID,
		&rp.ExpireAt,
		&rp.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rp, nil
}

// Create inserts a pending replenishment.
func (r *ReplenishmentRepository) Create(ctx context.Context, rp *domain.Replenishment) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO replenishments (user_id, type_payment_id, origin_amount, amount, status, external_id, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, rp.UserID, rp.TypePaymentID, rp.OriginAmount, rp.Amount, rp.Status, rp.ExternalID, rp.ExpireAt,
	).Scan(&rp.ID, &rp.CreatedAt)
}

// GetByID retrieves a replenishment; returns (nil, nil) when absent.
func (r *ReplenishmentRepository) GetByID(ctx context.Context, id int64) (*domain.Replenishment, error) {
	rp, err := scanReplenishment(r.db.QueryRow(ctx,
		`SELECT `+replenishmentColumns+` FROM replenishments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rp, err
}

// GetByExternalID retrieves a replenishment by its external payment
// reference; returns (nil, nil) when absent.
func (r *ReplenishmentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Replenishment, error) {
	rp, err := scanReplenishment(r.db.QueryRow(ctx,
		`SELECT `+replenishmentColumns+` FROM replenishments WHERE external_id = $1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rp, err
}

// GetForUpdateTx loads a replenishment under FOR UPDATE inside tx.
func (r *ReplenishmentRepository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Replenishment, error) {
	rp, err := scanReplenishment(tx.QueryRow(ctx,
		`SELECT `+replenishmentColumns+` FROM replenishments WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rp, err
}

// SetStatusTx moves a replenishment to a new status inside tx.
func (r *ReplenishmentRepository) SetStatusTx(ctx context.Context, tx pgx.Tx, id int64, status string) error {
	_, err := tx.Exec(ctx, `UPDATE replenishments SET status = $2 WHERE id = $1`, id, status)
	return err
}

// SetStatus moves a replenishment to a new status outside any transaction.
// Used on the completion path where the status flip must survive even when
// the surrounding bookkeeping failed.
func (r *ReplenishmentRepository) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE replenishments SET status = $2 WHERE id = $1`, id, status)
	return err
}

// MarkProcessing flips a pending replenishment (looked up by external payment
// reference) to processing and returns it. The status guard makes webhook
// replays a no-op: the second call finds no pending row.
func (r *ReplenishmentRepository) MarkProcessing(ctx context.Context, externalID string) (*domain.Replenishment, error) {
	rp, err := scanReplenishment(r.db.QueryRow(ctx, `
		UPDATE replenishments SET status = $2
		WHERE external_id = $1 AND status = $3
		RETURNING `+replenishmentColumns,
		externalID, domain.ReplenishmentProcessing, domain.ReplenishmentPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rp, err
}

// CountByStatus aggregates replenishment counts per status.
func (r *ReplenishmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM replenishments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CancelExpired cancels every pending replenishment past its expiry and
// returns the affected rows for per-row audit.
func (r *ReplenishmentRepository) CancelExpired(ctx context.Context, now time.Time) ([]domain.Replenishment, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE replenishments SET status = $2
		WHERE status = $1 AND expire_at <= $3
		RETURNING `+replenishmentColumns,
		domain.ReplenishmentPending, domain.ReplenishmentCancelled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Replenishment
	for rows.Next() {
		rp, err := scanReplenishment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rp)
	}
	return res, rows.Err()
}
