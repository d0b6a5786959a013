package chromedb_test

import (
	"strings"
	"testing"
	"time"

	"github.com/mherod/getcookie/chromedb"
)

// TestBuildQueryCanonical asserts the generated SQL for a concrete
// name+domain spec equals the canonical string, modulo whitespace.
func TestBuildQueryCanonical(t *testing.T) {
	const now = int64(13_300_000_000_000_000)
	query, args := chromedb.BuildQuery("auth", "example.com", false, now)

	want := `SELECT name, encrypted_value, host_key AS domain, expires_utc AS expiry, is_secure, is_httponly, path, samesite ` +
		`FROM cookies WHERE expires_utc > 13300000000000000 AND (name = ? OR ? = '%') AND (host_key = ? OR host_key = ? OR host_key LIKE ?)`

	if normalizeSQL(query) != normalizeSQL(want) {
		t.Errorf("BuildQuery mismatch:\n got: %s\nwant: %s", query, want)
	}
	wantArgs := []any{"auth", "auth", "example.com", ".example.com", "%.example.com"}
	if len(args) != len(wantArgs) {
		t.Fatalf("arg count = %d, want %d", len(args), len(wantArgs))
	}
	for i := range args {
		if args[i] != wantArgs[i] {
			t.Errorf("arg[%d] = %v, want %v", i, args[i], wantArgs[i])
		}
	}
}

// TestBuildQueryNameWildcardCollapses asserts that name="%" omits the name
// predicate entirely rather than binding it.
func TestBuildQueryNameWildcardCollapses(t *testing.T) {
	query, args := chromedb.BuildQuery("%", "example.com", true, 0)
	if strings.Contains(query, "name = ?") {
		t.Errorf("expected no name predicate for wildcard name, got: %s", query)
	}
	if strings.Contains(query, "expires_utc >") {
		t.Errorf("expected no expiry predicate when includeExpired=true, got: %s", query)
	}
	wantArgs := []any{"example.com", ".example.com", "%.example.com"}
	if len(args) != len(wantArgs) {
		t.Fatalf("arg count = %d, want %d", len(args), len(wantArgs))
	}
}

func normalizeSQL(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TestChromeTimestampRoundTrip checks the Chrome-epoch offset arithmetic
// (Unix seconds to Chrome microseconds and back) on a few instants. It
// recomputes the formula locally; it does not call chromedb's unexported
// timestampToTime/timeToTimestamp helpers and does not cover the
// session/never sentinels.
func TestChromeTimestampRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	for _, tc := range []struct {
		name string
		in   time.Time
	}{
		{"unix epoch", time.Unix(0, 0).UTC()},
		{"now", now},
		{"far future", time.Unix(0, 0).UTC().AddDate(2000, 0, 0)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// chromedb's own timestamp helpers run only in chromedb_test.go's
			// TestManual Scan, which needs an -input database; here we assert
			// the formula directly using the documented epoch offset
			// (11,644,473,600s).
			const chromeEpochOffset = 11644473600
			usec := (tc.in.Unix() + chromeEpochOffset) * 1e6
			sec := usec/1e6 - chromeEpochOffset
			got := time.Unix(sec, 0).UTC()
			if !got.Equal(tc.in) {
				t.Errorf("round trip mismatch: got %v, want %v", got, tc.in)
			}
		})
	}
}
