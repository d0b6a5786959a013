package bincookie_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/mherod/getcookie/bincookie"
)

// buildSingleCookieFile constructs a minimal valid bincookie file containing
// one cookie ("session-id" / "abc123" / example.com, Secure+HttpOnly,
// expiry now+1d).
func buildSingleCookieFile(t *testing.T) []byte {
	t.Helper()
	now := time.Now().Truncate(time.Second)
	f := &bincookie.File{
		Pages: []*bincookie.Page{{
			Cookies: []*bincookie.Cookie{{
				Flags:   bincookie.FlagSecure | bincookie.FlagHTTPOnly,
				URL:     "example.com",
				Path:    "/",
				Name:    "session-id",
				Value:   "abc123",
				Created: now,
				Expires: now.Add(24 * time.Hour),
			}},
		}},
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

// TestScenarioWellFormedFile covers a well-formed file with a correct footer.
func TestScenarioWellFormedFile(t *testing.T) {
	data := buildSingleCookieFile(t)

	f, err := bincookie.ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Pages) != 1 || len(f.Pages[0].Cookies) != 1 {
		t.Fatalf("expected 1 page with 1 cookie, got %+v", f)
	}
	c := f.Pages[0].Cookies[0]
	if c.Name != "session-id" || c.Value != "abc123" || c.URL != "example.com" || c.Path != "/" {
		t.Errorf("unexpected cookie fields: %+v", c)
	}
	if c.Flags&bincookie.FlagSecure == 0 || c.Flags&bincookie.FlagHTTPOnly == 0 {
		t.Errorf("expected Secure+HttpOnly flags, got %#o", c.Flags)
	}
}

// TestScenarioFooterMismatchWarnsOnly covers a wrong trailer: it must not
// prevent the file's cookies from being returned.
func TestScenarioFooterMismatchWarnsOnly(t *testing.T) {
	data := buildSingleCookieFile(t)

	// Locate and zero the 4-byte file trailer, which follows the 4-byte
	// checksum immediately after the page data.
	trailer := []byte("\x07\x17\x20\x05")
	idx := bytes.Index(data, trailer)
	if idx < 0 {
		t.Fatal("could not locate file trailer in encoded output")
	}
	corrupt := append([]byte(nil), data...)
	copy(corrupt[idx:idx+4], []byte{0, 0, 0, 0})

	f, err := bincookie.ParseFile(corrupt)
	if err != nil {
		t.Fatalf("ParseFile with bad trailer should not fail: %v", err)
	}
	if len(f.Pages) != 1 || len(f.Pages[0].Cookies) != 1 {
		t.Fatalf("expected cookie data to survive a bad trailer, got %+v", f)
	}
	if f.Pages[0].Cookies[0].Name != "session-id" {
		t.Errorf("unexpected cookie after bad-trailer recovery: %+v", f.Pages[0].Cookies[0])
	}
}

// TestScenarioBadMagicIsFatal covers a file whose magic bytes don't match.
func TestScenarioBadMagicIsFatal(t *testing.T) {
	data := buildSingleCookieFile(t)
	corrupt := append([]byte(nil), data...)
	copy(corrupt[:4], []byte("abcd"))

	if _, err := bincookie.ParseFile(corrupt); err == nil {
		t.Fatal("expected an error for a bad file magic")
	}
}

// TestMalformedCookieStopsPageNotFile ensures a cookie whose declared size
// overruns its page only drops the remainder of that page — earlier
// cookies in the page, and other pages entirely, still come
// back.
func TestMalformedCookieStopsPageNotFile(t *testing.T) {
	base := time.Unix(1700000000, 0)
	f := &bincookie.File{
		Pages: []*bincookie.Page{
			{
				Cookies: []*bincookie.Cookie{
					{URL: "a.example", Name: "first", Value: "1", Created: base, Expires: base},
					{URL: "a.example", Name: "second", Value: "2", Created: base, Expires: base},
				},
			},
			{
				Cookies: []*bincookie.Cookie{
					{URL: "b.example", Name: "third", Value: "3", Created: base, Expires: base},
				},
			},
		},
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	data := buf.Bytes()

	// Page 0's bytes begin right after the file header: 4-byte file magic,
	// 4-byte page count, and one 4-byte size field per page. Within the
	// page, the offset table follows the 4-byte page magic and 4-byte
	// cookie count; the second entry there points at the second cookie's
	// record, whose first 4 bytes are its declared size.
	pageStart := 4 + 4 + 4*len(f.Pages)
	secondOffsetPos := pageStart + 4 + 4 + 4
	secondCookieOff := pageStart + int(binary.LittleEndian.Uint32(data[secondOffsetPos:]))

	// Inflate the declared size so it overruns the page; the real bytes
	// behind it are untouched, only the size header lies.
	binary.LittleEndian.PutUint32(data[secondCookieOff:], 0x7fffffff)

	got, err := bincookie.ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile should isolate the bad cookie, not fail: %v", err)
	}
	if len(got.Pages) != 2 {
		t.Fatalf("expected both pages to survive, got %d", len(got.Pages))
	}
	if len(got.Pages[0].Cookies) != 1 || got.Pages[0].Cookies[0].Name != "first" {
		t.Errorf("expected only the first cookie to survive in page 0, got %+v", got.Pages[0].Cookies)
	}
	if len(got.Pages[1].Cookies) != 1 || got.Pages[1].Cookies[0].Name != "third" {
		t.Errorf("expected page 1 untouched, got %+v", got.Pages[1].Cookies)
	}
}
