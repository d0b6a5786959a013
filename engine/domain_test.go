package engine

import "testing"

func TestDomainMatches(t *testing.T) {
	for _, tc := range []struct {
		host string
		want bool
	}{
		{"example.com", true},
		{".example.com", true},
		{"api.example.com", true},
		{"notexample.com", false},
		{"example.com.evil", false},
	} {
		if got := domainMatches("example.com", tc.host); got != tc.want {
			t.Errorf("domainMatches(%q, %q) = %v, want %v", "example.com", tc.host, got, tc.want)
		}
	}
}
