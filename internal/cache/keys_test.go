package cache

import (
	"testing"
	"time"
)

func TestKeyBuilders(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{UserKey(42), "user:42"},
		{AdminKey(7), "admin:7"},
		{BannedAccountKey(3), "banned_account:3"},
		{PromoCodeKey("SUMMER"), "promo_code:SUMMER"},
		{VoucherKey("ABCD"), "voucher:ABCD"},
		{VoucherByUserKey(9), "voucher_by_user:9"},
		{AccountCategoriesByServiceKey(5, "en"), "account_categories_by_service_id:5:en"},
		{SoldAccountsByOwnerKey(8, "ru"), "sold_accounts_by_owner_id:8:ru"},
		{SoldAccountsByOwnerPrefix(8), "sold_accounts_by_owner_id:8:"},
		{TypePaymentKey(2), "type_payments:2"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("key = %q, want %q", c.got, c.want)
		}
	}
}

func TestExpiryTTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if ttl := ExpiryTTL(nil, now); ttl != TTLNone {
		t.Fatalf("nil expiry ttl = %v", ttl)
	}

	future := now.Add(30 * time.Minute)
	if ttl := ExpiryTTL(&future, now); ttl != 30*time.Minute {
		t.Fatalf("future ttl = %v", ttl)
	}

	past := now.Add(-time.Minute)
	if ttl := ExpiryTTL(&past, now); ttl != time.Second {
		t.Fatalf("past ttl = %v", ttl)
	}
}
