package cache

import (
	"strconv"
	"time"
)

// Kind-specific TTLs. Promo and voucher keys use exactly the remaining
// time-to-expiry (see ExpiryTTL). Admin/banned markers and settings carry no
// TTL and are deleted explicitly.
const (
	TTLUser             = 24 * time.Hour
	TTLSoldAccountsList = 10 * time.Minute
	TTLSoldAccount      = time.Hour
	TTLNone             = time.Duration(0)
)

func UserKey(id int64) string          { return "user:" + strconv.FormatInt(id, 10) }
func AdminKey(id int64) string         { return "admin:" + strconv.FormatInt(id, 10) }
func BannedAccountKey(id int64) string { return "banned_account:" + strconv.FormatInt(id, 10) }

const (
	SettingsKey       = "settings"
	ReferralLevelsKey = "referral_levels"
)

func PromoCodeKey(code string) string { return "promo_code:" + code }
func VoucherKey(code string) string   { return "voucher:" + code }

func VoucherByUserKey(userID int64) string {
	return "voucher_by_user:" + strconv.FormatInt(userID, 10)
}

func UIImageKey(key string) string { return "ui_image:" + key }

func AccountServiceKey(id int64) string {
	return "account_service:" + strconv.FormatInt(id, 10)
}

const AccountServicesKey = "account_services"

func AccountCategoriesByServiceKey(serviceID int64, lang string) string {
	return "account_categories_by_service_id:" + strconv.FormatInt(serviceID, 10) + ":" + lang
}

func AccountCategoriesByCategoryKey(categoryID int64, lang string) string {
	return "account_categories_by_category_id:" + strconv.FormatInt(categoryID, 10) + ":" + lang
}

func ProductAccountsByCategoryKey(categoryID int64) string {
	return "product_accounts_by_category_id:" + strconv.FormatInt(categoryID, 10)
}

func ProductAccountsByAccountKey(accountID int64) string {
	return "product_accounts_by_account_id:" + strconv.FormatInt(accountID, 10)
}

func SoldAccountsByOwnerKey(ownerID int64, lang string) string {
	return "sold_accounts_by_owner_id:" + strconv.FormatInt(ownerID, 10) + ":" + lang
}

// SoldAccountsByOwnerPrefix is the language fan-out prefix for one owner.
func SoldAccountsByOwnerPrefix(ownerID int64) string {
	return "sold_accounts_by_owner_id:" + strconv.FormatInt(ownerID, 10) + ":"
}

func SoldAccountsByAccountKey(accountID int64, lang string) string {
	return "sold_accounts_by_accounts_id:" + strconv.FormatInt(accountID, 10) + ":" + lang
}

func SoldAccountsByAccountPrefix(accountID int64) string {
	return "sold_accounts_by_accounts_id:" + strconv.FormatInt(accountID, 10) + ":"
}

func TypePaymentKey(id int64) string {
	return "type_payments:" + strconv.FormatInt(id, 10)
}

const AllTypesPaymentsKey = "all_types_payments"

func SubscriptionPromptKey(userID int64) string {
	return "subscription_prompt:" + strconv.FormatInt(userID, 10)
}

// ExpiryTTL returns the remaining lifetime of a time-bound entity, so the
// cached copy dies no later than the entity itself. Entities without expiry
// get no TTL; already expired ones get a minimal TTL instead of a negative
// one.
func ExpiryTTL(expireAt *time.Time, now time.Time) time.Duration {
	if expireAt == nil {
		return TTLNone
	}
	d := expireAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d
}
