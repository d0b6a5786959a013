//go:build darwin

package masterkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/keybase/go-keychain"
)

// serviceNames maps a browser tag to the Keychain service name it stores its
// Safe Storage password under.
var serviceNames = map[string]string{
	"chrome":   "Chrome Safe Storage",
	"chromium": "Chromium Safe Storage",
	"edge":     "Microsoft Edge Safe Storage",
	"brave":    "Brave Safe Storage",
	"opera":    "Opera Safe Storage",
	"opera-gx": "Opera Safe Storage",
	"arc":      "Arc Safe Storage",
}

const darwinPBKDF2Iterations = 1003

func forOS() Provider { return cached(&darwinProvider{}) }

type darwinProvider struct{}

// Key retrieves the Safe Storage password for browser from the macOS
// Keychain and derives the AES-128-CBC key from it. Grounded directly on
// wham-gh-slackdump's cookie_password_darwin.go keychain.NewItem/QueryItem
// shape, generalised from a single hardcoded Slack service name to one
// service name per browser.
func (p *darwinProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	service, ok := serviceNames[browser]
	if !ok {
		return Key{}, fmt.Errorf("masterkey: no Keychain service known for %q", browser)
	}

	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)
	results, err := keychain.QueryItem(query)
	if err != nil {
		return Key{}, fmt.Errorf("masterkey: keychain query for %s: %w", service, err)
	}
	if len(results) == 0 {
		return Key{}, errors.New("masterkey: no keychain item found for " + service)
	}

	passphrase := string(results[0].Data)
	return Key{
		Bytes:  deriveCBCKey(passphrase, darwinPBKDF2Iterations),
		Scheme: CBC128,
	}, nil
}
