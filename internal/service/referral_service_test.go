package service

import (
	"testing"

	"shop_backoffice/internal/domain"
)

var ladder = []domain.ReferralLevel{
	{Level: 1, AmountOfAchievement: 0, Percent: 5},
	{Level: 2, AmountOfAchievement: 50000, Percent: 7},
	{Level: 3, AmountOfAchievement: 200000, Percent: 10},
}

func TestPickLevel(t *testing.T) {
	cases := []struct {
		total int64
		want  int
	}{
		{0, 1},
		{49999, 1},
		{50000, 2},
		{199999, 2},
		{200000, 3},
		{1000000, 3},
	}
	for _, c := range cases {
		if got := pickLevel(ladder, c.total); got.Level != c.want {
			t.Errorf("pickLevel(%d) = %d, want %d", c.total, got.Level, c.want)
		}
	}
}

func TestPickLevelEmptyLadder(t *testing.T) {
	got := pickLevel(nil, 100000)
	if got.Level != 1 || got.Percent != 0 {
		t.Fatalf("pickLevel on empty ladder = %+v", got)
	}
}

func TestPayoutAmount(t *testing.T) {
	cases := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{1000, 5, 50},
		{1000, 7, 70},
		{999, 5, 49}, // floors
		{19, 5, 0},
		{0, 10, 0},
		{-100, 10, 0},
		{100, 0, 0},
	}
	for _, c := range cases {
		if got := payoutAmount(c.amount, c.percent); got != c.want {
			t.Errorf("payoutAmount(%d, %d) = %d, want %d", c.amount, c.percent, got, c.want)
		}
	}
}
