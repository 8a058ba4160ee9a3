package domain

import "time"

// Replenishment statuses. Transitions form a DAG:
// pending -> processing -> {completed, error}, pending -> cancelled.
// Terminal states are never mutated again.
const (
	ReplenishmentPending    = "pending"
	ReplenishmentProcessing = "processing"
	ReplenishmentCompleted  = "completed"
	ReplenishmentError      = "error"
	ReplenishmentCancelled  = "cancelled"
)

type Replenishment struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	TypePaymentID int64     `db:"type_payment_id" json:"type_payment_id"`
	OriginAmount  int64     `db:"origin_amount" json:"origin_amount"`
	Amount        int64     `db:"amount" json:"amount"`
	Status        string    `db:"status" json:"status"`
	ExternalID    string    `db:"external_id" json:"external_id"`
	ExpireAt      time.Time `db:"expire_at" json:"expire_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
