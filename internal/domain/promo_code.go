package domain

import "time"

// PromoCode carries either a fixed Amount or a DiscountPercentage, never both.
type PromoCode struct {
	ID                  int64      `db:"id" json:"id"`
	Code                string     `db:"code" json:"code"`
	MinOrderAmount      int64      `db:"min_order_amount" json:"min_order_amount"`
	Amount              *int64     `db:"amount" json:"amount,omitempty"`
	DiscountPercentage  *int       `db:"discount_percentage" json:"discount_percentage,omitempty"`
	ActivatedCounter    int        `db:"activated_counter" json:"activated_counter"`
	NumberOfActivations int        `db:"number_of_activations" json:"number_of_activations"`
	ExpireAt            *time.Time `db:"expire_at" json:"expire_at,omitempty"`
	IsValid             bool       `db:"is_valid" json:"is_valid"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// Exhausted reports whether the activation limit has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.ActivatedCounter >= p.NumberOfActivations
}

// Expired reports whether the promo code is past its expiry timestamp.
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpireAt != nil && !now.Before(*p.ExpireAt)
}

// ActivatedPromoCode records a single use. (PromoCodeID, UserID) is unique.
type ActivatedPromoCode struct {
	ID          int64     `db:"id" json:"id"`
	PromoCodeID int64     `db:"promo_code_id" json:"promo_code_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
