package domain

import "time"

type User struct {
	ID                    int64     `db:"id" json:"id"`
	TgID                  int64     `db:"tg_id" json:"tg_id"`
	Username              string    `db:"username" json:"username"`
	Language              string    `db:"language" json:"language"`
	ReferralCode          string    `db:"referral_code" json:"referral_code"`
	Balance               int64     `db:"balance" json:"balance"`
	TotalSumReplenishment int64     `db:"total_sum_replenishment" json:"total_sum_replenishment"`
	TotalProfitReferrals  int64     `db:"total_profit_from_referrals" json:"total_profit_from_referrals"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// NotificationSettings holds per-user notification flags
type NotificationSettings struct {
	UserID                int64 `db:"user_id" json:"user_id"`
	ReferralInvitation    bool  `db:"referral_invitation" json:"referral_invitation"`
	ReferralReplenishment bool  `db:"referral_replenishment" json:"referral_replenishment"`
}
