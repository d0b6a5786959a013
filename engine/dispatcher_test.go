package engine

import (
	"context"
	"testing"

	"github.com/mherod/getcookie/browserpaths"
)

// fixedStrategy returns a canned result regardless of the spec, so
// Dispatcher behavior can be tested without touching a real browser
// profile.
type fixedStrategy struct {
	name string
	kind browserpaths.Kind
	out  []ExportedCookie
}

func (f *fixedStrategy) Name() string               { return f.name }
func (f *fixedStrategy) Kind() browserpaths.Kind     { return f.kind }
func (f *fixedStrategy) Query(context.Context, CookieSpec, QueryOptions) ([]ExportedCookie, error) {
	return f.out, nil
}

func TestDispatcherGetMergesInRegistrationOrder(t *testing.T) {
	a := &fixedStrategy{name: "a", kind: browserpaths.Chromium, out: []ExportedCookie{{Name: "x", Domain: "example.com"}}}
	b := &fixedStrategy{name: "b", kind: browserpaths.Firefox, out: []ExportedCookie{{Name: "y", Domain: "example.com"}}}
	d := New(a, b)

	got, err := d.Get(context.Background(), ByDomain("example.com"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestDispatcherGetChromeFiltersByKind(t *testing.T) {
	a := &fixedStrategy{name: "a", kind: browserpaths.Chromium, out: []ExportedCookie{{Name: "x"}}}
	b := &fixedStrategy{name: "b", kind: browserpaths.Firefox, out: []ExportedCookie{{Name: "y"}}}
	d := New(a, b)

	got, err := d.GetChrome(context.Background(), CookieSpec{Name: "%"})
	if err != nil {
		t.Fatalf("GetChrome: %v", err)
	}
	if len(got) != 1 || got[0].Name != "x" {
		t.Fatalf("GetChrome returned %+v, want only strategy a's cookie", got)
	}
}

func TestDispatcherBatchDeduplicatesAcrossSpecs(t *testing.T) {
	a := &fixedStrategy{name: "a", kind: browserpaths.Chromium, out: []ExportedCookie{
		{Name: "session", Domain: "example.com", Value: "short", Meta: ExportedMeta{Decrypted: true}},
	}}
	b := &fixedStrategy{name: "b", kind: browserpaths.Firefox, out: []ExportedCookie{
		{Name: "session", Domain: "example.com", Value: "longer_value", Meta: ExportedMeta{Decrypted: true}},
	}}
	d := New(a, b)

	opts := DefaultBatchOptions()
	got, err := d.Batch(context.Background(), []CookieSpec{ByDomain("example.com")}, opts)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(got) != 1 || got[0].Value != "longer_value" {
		t.Fatalf("Batch dedup result = %+v, want a single longer_value cookie", got)
	}
}

func TestDispatcherBatchRespectsLimit(t *testing.T) {
	a := &fixedStrategy{name: "a", kind: browserpaths.Chromium, out: []ExportedCookie{
		{Name: "one", Domain: "example.com"},
		{Name: "two", Domain: "example.com"},
		{Name: "three", Domain: "example.com"},
	}}
	d := New(a)

	opts := DefaultBatchOptions()
	opts.Limit = 2
	got, err := d.Batch(context.Background(), []CookieSpec{ByDomain("example.com")}, opts)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}
