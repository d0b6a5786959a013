//go:build linux

package masterkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	secretServiceDest = "org.freedesktop.secrets"
	secretServicePath = "/org/freedesktop/secrets"

	// peanutsFallback is Chromium's long-documented, widely-known
	// hardcoded Linux password used when no real OS keyring is available
	// (kwallet/gnome-keyring absent, headless session, etc). This is
	// explicitly brittle: a key derived from it may simply
	// fail to decrypt, which callers must treat as ordinary
	// DecryptFailed degradation rather than a process error.
	peanutsFallback           = "peanuts"
	peanutsPBKDF2Iterations   = 1
	secretServicePBKDF2Rounds = 1
)

// secretSchemas lists the libsecret attribute schema generations Chromium
// has used on Linux, most recent first.
var secretSchemas = []string{
	"chrome_libsecret_os_crypt_password_v2",
	"chrome_libsecret_os_crypt_password_v1",
}

func forOS() Provider { return cached(&linuxProvider{}) }

type linuxProvider struct{}

// Key attempts the freedesktop Secret Service over D-Bus first, and falls
// back to the documented "peanuts" constant password on any D-Bus failure
// (no agent running, item not found, locked collection the user declines to
// unlock). Grounded on the presence of github.com/godbus/dbus/v5 across the
// retrieved corpus (bbmumford-ClaudeBar, kyupark-ask go.mod) as the
// ecosystem's D-Bus client; no example repo implements the Secret Service
// protocol itself, so the wire sequence here follows the standard
// org.freedesktop.Secret.Service API directly.
func (p *linuxProvider) Key(ctx context.Context, browser, profileDir string) (Key, error) {
	passphrase, err := secretServicePassphrase(browser)
	if err != nil {
		return Key{
			Bytes:  deriveCBCKey(peanutsFallback, peanutsPBKDF2Iterations),
			Scheme: CBC128,
		}, nil
	}
	return Key{
		Bytes:  deriveCBCKey(passphrase, secretServicePBKDF2Rounds),
		Scheme: CBC128,
	}, nil
}

func secretServicePassphrase(browser string) (string, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return "", fmt.Errorf("masterkey: session bus: %w", err)
	}
	defer conn.Close()

	service := conn.Object(secretServiceDest, secretServicePath)

	var sessionPath dbus.ObjectPath
	var output dbus.Variant
	if err := service.Call("org.freedesktop.Secret.Service.OpenSession", 0, "plain", dbus.MakeVariant("")).
		Store(&output, &sessionPath); err != nil {
		return "", fmt.Errorf("masterkey: OpenSession: %w", err)
	}

	for _, schema := range secretSchemas {
		attrs := map[string]string{"xdg:schema": schema, "application": browser}
		var unlocked, locked []dbus.ObjectPath
		if err := service.Call("org.freedesktop.Secret.Service.SearchItems", 0, attrs).
			Store(&unlocked, &locked); err != nil {
			continue
		}
		items := append(unlocked, locked...)
		for _, item := range items {
			secret, err := fetchSecret(conn, item, sessionPath)
			if err == nil && len(secret) > 0 {
				return string(secret), nil
			}
		}
	}
	return "", errors.New("masterkey: no matching Secret Service item found")
}

// secretStruct mirrors the (oayays) tuple returned by
// org.freedesktop.Secret.Item.GetSecret.
type secretStruct struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

func fetchSecret(conn *dbus.Conn, item, session dbus.ObjectPath) ([]byte, error) {
	obj := conn.Object(secretServiceDest, item)
	var s secretStruct
	if err := obj.Call("org.freedesktop.Secret.Item.GetSecret", 0, session).Store(&s); err != nil {
		return nil, err
	}
	return s.Value, nil
}
