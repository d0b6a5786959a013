// Package masterkey retrieves the per-OS Chromium "Safe Storage" master key
// used to derive the AES key for encrypted_value cookie columns.
package masterkey

import (
	"context"
	"crypto/sha1"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// cbcKeySalt and cbcKeyBytes mirror chromedb's own PBKDF2 parameters
// ("saltysalt", 16 bytes) so a passphrase recovered here produces the same
// AES-128-CBC key chromedb would derive from it directly. Duplicated rather
// than imported to keep masterkey free of a dependency on chromedb — the
// two packages derive keys from the same documented Chromium constants,
// not from shared code.
const (
	cbcKeySalt  = "saltysalt"
	cbcKeyBytes = 16
)

// deriveCBCKey turns a recovered passphrase into the AES-128-CBC key
// chromedb's decryptValue expects.
func deriveCBCKey(passphrase string, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(cbcKeySalt), iterations, cbcKeyBytes, sha1.New)
}

// Scheme identifies which AES construction a Key is meant for.
type Scheme int

// Values for the Scheme enumeration.
const (
	CBC128 Scheme = iota // AES-128-CBC, fixed 16-space IV (macOS/Linux)
	GCM256                // AES-256-GCM, 12-byte nonce (Windows)
)

// Key is a master key recovered from the OS secret store, tagged with the
// AES construction it should be used with.
type Key struct {
	Bytes  []byte
	Scheme Scheme
}

// Provider retrieves the master key for a browser's profile directory.
type Provider interface {
	Key(ctx context.Context, browser, profileDir string) (Key, error)
}

// ForOS returns the Provider appropriate to the running operating system. It
// is implemented per-platform in masterkey_darwin.go, masterkey_windows.go,
// masterkey_linux.go, and a stub masterkey_other.go for anything else.
func ForOS() Provider { return forOS() }

// cache memoises recovered keys for the process lifetime, keyed on
// (browser, profileDir). A Keychain prompt or DPAPI round trip is expensive
// enough that repeating it per cookie file within one run is wasteful; the
// cache is never persisted to disk.
type cache struct {
	mu   sync.Mutex
	keys map[string]Key
}

var globalCache = &cache{keys: make(map[string]Key)}

func cacheKey(browser, profileDir string) string {
	return browser + "\x00" + profileDir
}

// cached wraps a Provider so repeated lookups for the same (browser,
// profileDir) hit the process-global cache instead of re-querying the OS.
func cached(p Provider) Provider { return &cachingProvider{inner: p} }

type cachingProvider struct{ inner Provider }

func (c *cachingProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	ck := cacheKey(browser, profileDir)

	globalCache.mu.Lock()
	if k, ok := globalCache.keys[ck]; ok {
		globalCache.mu.Unlock()
		return k, nil
	}
	globalCache.mu.Unlock()

	k, err := c.inner.Key(ctx, browser, profileDir)
	if err != nil {
		return Key{}, err
	}

	globalCache.mu.Lock()
	globalCache.keys[ck] = k
	globalCache.mu.Unlock()
	return k, nil
}
