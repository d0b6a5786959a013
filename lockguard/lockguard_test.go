package lockguard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mherod/getcookie/browserpaths"
	"github.com/mherod/getcookie/lockguard"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want lockguard.Kind
	}{
		{errors.New("database is locked"), lockguard.Locked},
		{errors.New("SQLITE_BUSY"), lockguard.Locked},
		{errors.New("EPERM"), lockguard.Permission},
		{errors.New("Permission denied"), lockguard.Permission},
		{errors.New("syntax error"), lockguard.NotLock},
		{nil, lockguard.NotLock},
	} {
		if got := lockguard.Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

// TestResolveForceNeverTouchesProcesses covers the cancellation
// property: with force=true, Resolve must short-circuit to Unresolved
// without any process inspection or close side effect, regardless of
// whether the named browser happens to be running on the test machine.
func TestResolveForceNeverTouchesProcesses(t *testing.T) {
	browser := browserpaths.Browser{Tag: "a-browser-tag-that-should-never-match-anything-xyz", Kind: browserpaths.Chromium}
	outcome, err := lockguard.Resolve(context.Background(), "/nonexistent/Cookies", browser, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome != lockguard.Unresolved {
		t.Errorf("outcome = %v, want Unresolved", outcome)
	}
}

// TestResolveNoProcessesIsUnresolved covers the INSPECT -> no processes ->
// UNRESOLVED branch of the state machine when the browser isn't running.
func TestResolveNoProcessesIsUnresolved(t *testing.T) {
	browser := browserpaths.Browser{Tag: "a-browser-tag-that-should-never-match-anything-xyz", Kind: browserpaths.Chromium}
	outcome, err := lockguard.Resolve(context.Background(), "/nonexistent/Cookies", browser, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if outcome != lockguard.Unresolved {
		t.Errorf("outcome = %v, want Unresolved", outcome)
	}
}
