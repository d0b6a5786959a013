package engine

import (
	"strings"
	"testing"
)

func TestBuildFirefoxQueryNameWildcardCollapses(t *testing.T) {
	query, args := buildFirefoxQuery("%", "example.com", true)
	if strings.Contains(query, "name = ?") {
		t.Errorf("expected no name predicate for wildcard name, got: %s", query)
	}
	if strings.Contains(query, "expiry >") {
		t.Errorf("expected no expiry predicate when includeExpired=true, got: %s", query)
	}
	wantArgs := []any{"example.com", ".example.com", "%.example.com"}
	if len(args) != len(wantArgs) {
		t.Fatalf("arg count = %d, want %d", len(args), len(wantArgs))
	}
}

func TestBuildFirefoxQueryBindsName(t *testing.T) {
	query, args := buildFirefoxQuery("auth", "example.com", false)
	if !strings.Contains(query, "(name = ? OR ? = '%')") {
		t.Errorf("expected name predicate, got: %s", query)
	}
	if !strings.Contains(query, "expiry >") {
		t.Errorf("expected expiry predicate, got: %s", query)
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
