package browserpaths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseProfilesIniPrefersInstallDefault(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, "profiles.ini")
	const content = `[Profile0]
Name=default
IsRelative=1
Path=abc.default
Default=1

[Profile1]
Name=work
IsRelative=1
Path=xyz.work

[Install9E87B8B4C5A5A7D1]
Default=abc.default
Locked=1
`
	if err := os.WriteFile(ini, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := parseProfilesIni(ini)
	if len(got) == 0 {
		t.Fatal("parseProfilesIni returned nothing")
	}
	want := filepath.Join(dir, "abc.default")
	if got[0] != want {
		t.Errorf("got[0] = %q, want %q (Install default first)", got[0], want)
	}

	found := map[string]bool{}
	for _, p := range got {
		found[p] = true
	}
	if !found[filepath.Join(dir, "xyz.work")] {
		t.Errorf("expected non-default profile xyz.work to still be collected: %v", got)
	}
}

func TestParseProfilesIniFallsBackToProfileDefault(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, "profiles.ini")
	const content = `[Profile0]
Name=default
IsRelative=1
Path=abc.default
Default=1
`
	if err := os.WriteFile(ini, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got := parseProfilesIni(ini)
	if len(got) != 1 || got[0] != filepath.Join(dir, "abc.default") {
		t.Errorf("got = %v, want a single abc.default entry", got)
	}
}

func TestParseProfilesIniMissingFileReturnsNil(t *testing.T) {
	if got := parseProfilesIni(filepath.Join(t.TempDir(), "missing.ini")); got != nil {
		t.Errorf("got = %v, want nil", got)
	}
}
