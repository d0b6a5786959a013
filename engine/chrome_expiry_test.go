package engine

import (
	"testing"
	"time"
)

// TestChromeExpirySentinels covers the expiry conversion table: a
// converted Unix-seconds value at or below zero is a session cookie, at or
// above the never threshold never expires, and anything in between is a
// concrete time.
func TestChromeExpirySentinels(t *testing.T) {
	now := time.Now()
	nowChrome := (now.Unix() + chromeEpochOffset) * 1_000_000

	cases := []struct {
		name  string
		usec  int64
		kind  ExpiryKind
	}{
		{"zero", 0, Session},
		{"one microsecond", 1, Session},
		{"now", nowChrome, At},
		{"just under never", neverThreshold*1_000_000 - 1, At},
		{"at never threshold", (neverThreshold + chromeEpochOffset) * 1_000_000, Never},
	}
	for _, tc := range cases {
		got := chromeExpiry(tc.usec)
		if got.Kind != tc.kind {
			t.Errorf("%s: chromeExpiry(%d).Kind = %v, want %v", tc.name, tc.usec, got.Kind, tc.kind)
		}
	}
}
