package masterkey

import (
	"context"
	"testing"
)

type countingProvider struct {
	calls int
	key   Key
}

func (c *countingProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	c.calls++
	return c.key, nil
}

func TestCachedProviderMemoizesPerBrowserAndProfile(t *testing.T) {
	inner := &countingProvider{key: Key{Bytes: []byte("k"), Scheme: CBC128}}
	p := cached(inner)

	ctx := context.Background()
	if _, err := p.Key(ctx, "chrome", "/profiles/Default"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Key(ctx, "chrome", "/profiles/Default"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner.calls = %d, want 1 (second call should hit the cache)", inner.calls)
	}

	if _, err := p.Key(ctx, "chrome", "/profiles/Other"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want 2 (different profile is a cache miss)", inner.calls)
	}
}

func TestDeriveCBCKeyLength(t *testing.T) {
	got := deriveCBCKey("passphrase", 1)
	if len(got) != cbcKeyBytes {
		t.Errorf("len(deriveCBCKey(...)) = %d, want %d", len(got), cbcKeyBytes)
	}
}
