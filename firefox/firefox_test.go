package firefox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mherod/getcookie"

	_ "modernc.org/sqlite"
)

func TestOpenAnyPicksFirstExistingPath(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "profile2", "cookies.sqlite")
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(real, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	candidates := []string{
		filepath.Join(dir, "profile1", "cookies.sqlite"), // does not exist
		real,
	}
	s, err := OpenAny(candidates, nil)
	if err != nil {
		t.Fatalf("OpenAny: %v", err)
	}
	if s == nil {
		t.Fatal("OpenAny returned a nil store")
	}
}

func TestOpenAnyNoCandidatesExist(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenAny([]string{filepath.Join(dir, "missing.sqlite")}, nil)
	if err == nil {
		t.Fatal("expected an error when no candidate path exists")
	}
}

func TestSameSitePolicyRoundTrip(t *testing.T) {
	for _, s := range []cookies.SameSite{cookies.None, cookies.Lax, cookies.Strict} {
		got := decodeSitePolicy(int64(encodeSitePolicy(s)))
		if got != s {
			t.Errorf("round trip %v -> %v, want %v", s, got, s)
		}
	}
}
