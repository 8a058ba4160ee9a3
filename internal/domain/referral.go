package domain

import "time"

// Referral links a referred user to its owner. At most one owner per user.
type Referral struct {
	ID             int64     `db:"id" json:"id"`
	OwnerID        int64     `db:"owner_id" json:"owner_id"`
	ReferredUserID int64     `db:"referred_user_id" json:"referred_user_id"`
	Level          int       `db:"level" json:"level"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ReferralLevel is one tier of the payout ladder. Thresholds are strictly
// increasing with level; level 1 is the floor.
type ReferralLevel struct {
	Level               int   `db:"level" json:"level"`
	AmountOfAchievement int64 `db:"amount_of_achievement" json:"amount_of_achievement"`
	Percent             int   `db:"percent" json:"percent"`
}

// IncomeFromReferral records one payout. ReplenishmentID is unique: it is the
// idempotency key that protects against double payouts on event redelivery.
type IncomeFromReferral struct {
	ID              int64     `db:"id" json:"id"`
	ReplenishmentID int64     `db:"replenishment_id" json:"replenishment_id"`
	OwnerID         int64     `db:"owner_id" json:"owner_id"`
	ReferredUserID  int64     `db:"referred_user_id" json:"referred_user_id"`
	Amount          int64     `db:"amount" json:"amount"`
	Percent         int       `db:"percent" json:"percent"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
