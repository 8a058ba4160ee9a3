package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryPayment  = "payment"
	AuditCategoryBalance  = "balance"
	AuditCategoryReferral = "referral"
	AuditCategoryVoucher  = "voucher"
	AuditCategoryPromo    = "promo"
	AuditCategoryPurchase = "purchase"
	AuditCategoryAdmin    = "admin"
)

// Audit actions
const (
	// Payment actions
	AuditActionReplenishmentCompleted = "replenishment_completed"
	AuditActionReplenishmentFailed    = "replenishment_failed"
	AuditActionReplenishmentCancelled = "replenishment_cancelled"

	// Balance actions
	AuditActionTransferOut = "transfer_out"
	AuditActionTransferIn  = "transfer_in"

	// Referral actions
	AuditActionReferralIncome = "referral_income"

	// Voucher actions
	AuditActionVoucherActivated   = "voucher_activated"
	AuditActionVoucherDeactivated = "voucher_deactivated"
	AuditActionVoucherRefund      = "voucher_refund"
	AuditActionVoucherReversed    = "voucher_reversed"

	// Promo actions
	AuditActionPromoActivated = "promo_activated"
	AuditActionPromoExpired   = "promo_expired"

	// Purchase actions
	AuditActionPurchaseAccount   = "purchase_account"
	AuditActionPurchaseUniversal = "purchase_universal"
)
