package model

import (
	"testing"
	"time"
)

func TestAccessGrantActiveAt(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(365 * 24 * time.Hour)
	revoked := start.Add(time.Hour)

	base := AccessGrant{UserID: 1, Module: Module1, StartAt: start, ExpiresAt: end}
	revokedGrant := base
	revokedGrant.RevokedAt = &revoked

	cases := []struct {
		name  string
		grant AccessGrant
		at    time.Time
		want  bool
	}{
		{"before start", base, start.Add(-time.Second), false},
		{"exactly at start", base, start, true},
		{"inside window", base, start.Add(24 * time.Hour), true},
		{"one instant before expiry", base, end.Add(-time.Nanosecond), true},
		{"exactly at expiry", base, end, false},
		{"after expiry", base, end.Add(time.Second), false},
		{"revoked", revokedGrant, start.Add(2 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.grant.ActiveAt(tc.at); got != tc.want {
				t.Fatalf("ActiveAt(%s) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestItemModules(t *testing.T) {
	cases := []struct {
		item string
		want []Module
	}{
		{ItemModule1, []Module{Module1}},
		{ItemModule2, []Module{Module2}},
		{ItemModule3, []Module{Module3}},
		{ItemAll, []Module{Module1, Module2, Module3}},
		{"MODULE_9", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := ItemModules(tc.item)
		if len(got) != len(tc.want) {
			t.Fatalf("ItemModules(%q) = %v, want %v", tc.item, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ItemModules(%q) = %v, want %v", tc.item, got, tc.want)
			}
		}
	}
}
