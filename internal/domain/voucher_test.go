package domain

import (
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestVoucherUnusedActivations(t *testing.T) {
	cases := []struct {
		name    string
		voucher Voucher
		want    int
	}{
		{"unlimited", Voucher{NumberOfActivations: nil, ActivatedCounter: 3}, 0},
		{"untouched", Voucher{NumberOfActivations: intPtr(5)}, 5},
		{"partial", Voucher{NumberOfActivations: intPtr(5), ActivatedCounter: 2}, 3},
		{"exhausted", Voucher{NumberOfActivations: intPtr(5), ActivatedCounter: 5}, 0},
		{"overshoot", Voucher{NumberOfActivations: intPtr(5), ActivatedCounter: 7}, 0},
	}
	for _, c := range cases {
		if got := c.voucher.UnusedActivations(); got != c.want {
			t.Errorf("%s: UnusedActivations = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestVoucherExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	v := Voucher{}
	if v.Expired(now) {
		t.Fatal("voucher without expiry reported expired")
	}

	future := now.Add(time.Hour)
	v.ExpireAt = &future
	if v.Expired(now) {
		t.Fatal("future expiry reported expired")
	}

	v.ExpireAt = &now
	if !v.Expired(now) {
		t.Fatal("expiry at now must count as expired")
	}
}

func TestPromoCodeExhausted(t *testing.T) {
	p := PromoCode{NumberOfActivations: 3, ActivatedCounter: 2}
	if p.Exhausted() {
		t.Fatal("promo with room reported exhausted")
	}
	p.ActivatedCounter = 3
	if !p.Exhausted() {
		t.Fatal("promo at limit not reported exhausted")
	}
}
