package domain

import "time"

// Wallet transaction kinds. Amounts are signed from the user's perspective:
// credits positive, debits negative.
const (
	WalletTxReplenish = "replenish"
	WalletTxReferral  = "referral"
	WalletTxPurchase  = "purchase"
	WalletTxRefund    = "refund"
	WalletTxTransfer  = "transfer"
	WalletTxVoucher   = "voucher"
	WalletTxPromo     = "promo"
	WalletTxAdmin     = "admin"
	WalletTxOther     = "other"
)

type WalletTransaction struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Kind          string    `db:"kind" json:"kind"`
	Amount        int64     `db:"amount" json:"amount"`
	BalanceBefore int64     `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64     `db:"balance_after" json:"balance_after"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
