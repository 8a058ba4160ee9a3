package domain

import "time"

type Voucher struct {
	ID                  int64      `db:"id" json:"id"`
	CreatorID           int64      `db:"creator_id" json:"creator_id"`
	Code                string     `db:"code" json:"code"`
	Amount              int64      `db:"amount" json:"amount"`
	ActivatedCounter    int        `db:"activated_counter" json:"activated_counter"`
	NumberOfActivations *int       `db:"number_of_activations" json:"number_of_activations,omitempty"`
	StartAt             time.Time  `db:"start_at" json:"start_at"`
	ExpireAt            *time.Time `db:"expire_at" json:"expire_at,omitempty"`
	IsValid             bool       `db:"is_valid" json:"is_valid"`
	IsCreatedAdmin      bool       `db:"is_created_admin" json:"is_created_admin"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// Expired reports whether the voucher is past its expiry timestamp.
func (v *Voucher) Expired(now time.Time) bool {
	return v.ExpireAt != nil && !now.Before(*v.ExpireAt)
}

// UnusedActivations returns the number of activations left, or 0 for an
// unlimited voucher (nothing to refund on deactivation).
func (v *Voucher) UnusedActivations() int {
	if v.NumberOfActivations == nil {
		return 0
	}
	left := *v.NumberOfActivations - v.ActivatedCounter
	if left < 0 {
		return 0
	}
	return left
}

// VoucherActivation records a single use. (VoucherID, UserID) is unique: a
// user may activate a voucher at most once.
type VoucherActivation struct {
	ID        int64     `db:"id" json:"id"`
	VoucherID int64     `db:"voucher_id" json:"voucher_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
