package server

import (
	"testing"
	"time"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	cases := []struct {
		name string
		spec string
		last *time.Time
		want bool
	}{
		{"daily never run", "@daily", nil, true},
		{"daily recent", "@daily", &hourAgo, false},
		{"daily stale", "@daily", &twoDaysAgo, true},
		{"hourly recent", "@hourly", &hourAgo, true},
		{"cron fired since last", "0 3 * * *", &twoDaysAgo, true},
		{"cron not fired yet", "0 5 * * *", &hourAgo, false},
		{"invalid spec falls back to daily", "nonsense", &hourAgo, false},
		{"invalid spec never run", "nonsense", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDue(tc.spec, tc.last, now); got != tc.want {
				t.Fatalf("isDue(%q) = %v, want %v", tc.spec, got, tc.want)
			}
		})
	}
}
